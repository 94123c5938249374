package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// RemoteVerifier asks the provider's user endpoint to resolve a token.
type RemoteVerifier struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

func NewRemoteVerifier(baseURL, serviceKey string, timeout time.Duration) *RemoteVerifier {
	return &RemoteVerifier{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: timeout},
	}
}

type providerUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (Subject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return Subject{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.serviceKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Subject{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Subject{}, fmt.Errorf("%w: provider status %d", ErrRejected, resp.StatusCode)
	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Subject{}, fmt.Errorf("%w: provider status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Subject{}, fmt.Errorf("%w: provider status %d", ErrRejected, resp.StatusCode)
	}

	var user providerUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return Subject{}, fmt.Errorf("%w: decode user: %v", ErrUnavailable, err)
	}
	if user.ID == "" {
		return Subject{}, fmt.Errorf("%w: missing subject", ErrRejected)
	}

	return Subject{ID: user.ID, Email: user.Email}, nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: timeout: %v", ErrUnavailable, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
