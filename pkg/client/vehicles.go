package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/zohaib/garage/pkg/domain"
)

// PathVehicleLookup is the registration lookup endpoint.
const PathVehicleLookup = "/vehicles/lookup/"

// ErrEmptyRegistration is returned before any request is made.
var ErrEmptyRegistration = errors.New("registration number is required")

// LookupRegistration fetches vehicle data for a registration number.
// Surrounding whitespace is trimmed before the value is sent.
func (c *Client) LookupRegistration(ctx context.Context, registration string) (*domain.Vehicle, error) {
	registration = strings.TrimSpace(registration)
	if registration == "" {
		return nil, fmt.Errorf("client.LookupRegistration: %w", ErrEmptyRegistration)
	}

	params := url.Values{}
	params.Set("registration", registration)

	var v domain.Vehicle
	if err := c.sendJSON(ctx, &Request{Method: http.MethodGet, Path: PathVehicleLookup, Query: params}, &v); err != nil {
		return nil, fmt.Errorf("client.LookupRegistration: %w", err)
	}
	return &v, nil
}
