// Package statuspoll watches one loan application through the public status gateway.
package statuspoll

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrNotFound = errors.New("application not found")

// Application is the gateway projection; amounts come back as JSON numbers.
type Application struct {
	ID             string   `json:"id"`
	Status         string   `json:"status"`
	ApprovedAmount *float64 `json:"approved_amount"`
	Address        *string  `json:"address"`
	Age            *int     `json:"age"`
	BirthDate      *string  `json:"birth_date"`
	MotherName     *string  `json:"mother_name"`
	Gender         *string  `json:"gender"`
	CPFStatus      *string  `json:"cpf_status"`
	CNSNumber      *string  `json:"cns_number"`
}

// Terminal reports an approved or rejected application.
func (a *Application) Terminal() bool { return a.Status == "approved" || a.Status == "rejected" }

type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("status gateway: %d %s", e.Code, e.Message) }

type Client struct{ r *resty.Client }

func NewClient(baseURL string, timeout time.Duration) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{r: r}
}

type checkReq struct {
	ApplicationID string `json:"application_id"`
	ClientToken   string `json:"client_token"`
}

type envelope struct {
	Data *Application `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Check performs one gateway lookup.
func (c *Client) Check(ctx context.Context, applicationID, clientToken string) (*Application, error) {
	var out envelope
	var fail errorBody
	resp, err := c.r.R().
		SetContext(ctx).
		SetBody(checkReq{ApplicationID: applicationID, ClientToken: clientToken}).
		SetResult(&out).
		SetError(&fail).
		Post("/v1/applications/status")
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.IsError():
		return nil, &APIError{Code: resp.StatusCode(), Message: fail.Error}
	case out.Data == nil:
		return nil, &APIError{Code: resp.StatusCode(), Message: "empty response"}
	}
	return out.Data, nil
}

// Fetcher binds one application to the client, for use with a Poller.
func (c *Client) Fetcher(applicationID, clientToken string) FetchFunc {
	return func(ctx context.Context) (*Application, error) {
		return c.Check(ctx, applicationID, clientToken)
	}
}
