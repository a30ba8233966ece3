package marketplace

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	cause := errors.New("body")

	testCases := []struct {
		name       string
		code       int
		wantNil    bool
		credential bool
		transient  bool
		notFound   bool
	}{
		{name: "200 ok", code: 200, wantNil: true},
		{name: "201 created", code: 201, wantNil: true},
		{name: "401 invalid credentials", code: 401, credential: true},
		{name: "403 insufficient scope", code: 403, credential: true},
		{name: "404 not found", code: 404, notFound: true},
		{name: "429 rate limited", code: 429, transient: true},
		{name: "500 server error", code: 500, transient: true},
		{name: "502 bad gateway", code: 502, transient: true},
		{name: "400 malformed request", code: 400},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ClassifyStatus("op", tc.code, cause)
			if tc.wantNil {
				if err != nil {
					t.Fatalf("err = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("err = nil, want error")
			}
			if got := IsCredentialError(err); got != tc.credential {
				t.Errorf("IsCredentialError = %v, want %v", got, tc.credential)
			}
			if got := IsTransient(err); got != tc.transient {
				t.Errorf("IsTransient = %v, want %v", got, tc.transient)
			}
			if got := errors.Is(err, ErrNotFound); got != tc.notFound {
				t.Errorf("Is(ErrNotFound) = %v, want %v", got, tc.notFound)
			}
		})
	}
}

func TestIsTransientSeesWrappedTransportError(t *testing.T) {
	err := fmt.Errorf("fetch page: %w", &TransportError{Op: "op", StatusCode: 503, Err: errors.New("down")})
	if !IsTransient(err) {
		t.Error("wrapped TransportError should classify as transient")
	}
}

func TestDataErrorIsNotTransient(t *testing.T) {
	err := &DataError{Op: "op", Err: errors.New("bad json")}
	if IsTransient(err) {
		t.Error("data errors must not be retried")
	}
	if IsCredentialError(err) {
		t.Error("data errors are not credential errors")
	}
}
