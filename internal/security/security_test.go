package security

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidator_ValidateURL(t *testing.T) {
	v := NewValidator(Config{
		BlockedDomains:       []string{"Blocked.example", ""},
		BlockPrivateNetworks: true,
	})
	v.lookup = func(_ context.Context, host string) ([]net.IPAddr, error) {
		switch host {
		case "internal.example":
			return []net.IPAddr{{IP: net.ParseIP("10.0.0.8")}}, nil
		case "missing.example":
			return nil, errors.New("no such host")
		default:
			return []net.IPAddr{{IP: net.ParseIP("93.184.216.34")}}, nil
		}
	}

	tests := []struct {
		name     string
		url      string
		wantType string
	}{
		{"public https", "https://recipes.example/soup", ""},
		{"public http", "http://recipes.example/soup", ""},
		{"ftp scheme", "ftp://recipes.example/soup", "disallowed_scheme"},
		{"blocked domain", "https://blocked.example/a", "blocked_domain"},
		{"blocked subdomain", "https://www.blocked.example/a", "blocked_domain"},
		{"similar name allowed", "https://notblocked.example/a", ""},
		{"loopback literal", "http://127.0.0.1:8080/", "private_address"},
		{"ipv6 loopback", "http://[::1]/", "private_address"},
		{"private by dns", "https://internal.example/", "private_address"},
		{"unresolvable", "https://missing.example/", "unresolvable_host"},
		{"too long", "https://recipes.example/" + strings.Repeat("a", 3000), "url_length_exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateURL(context.Background(), tt.url)
			if tt.wantType == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var issue *Issue
			if !errors.As(err, &issue) {
				t.Fatalf("expected *Issue, got %v", err)
			}
			if issue.Type != tt.wantType {
				t.Errorf("issue type = %q, want %q", issue.Type, tt.wantType)
			}
		})
	}
}

func TestValidator_PrivateAllowedByDefault(t *testing.T) {
	v := NewValidator(DefaultConfig())
	if err := v.ValidateURL(context.Background(), "http://127.0.0.1:3000/recipe"); err != nil {
		t.Errorf("loopback should be allowed unless blocked: %v", err)
	}
}

func TestValidator_CheckRedirectRefusesLoopbackHop(t *testing.T) {
	var reachedInternal bool
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reachedInternal = true
		w.Write([]byte("metadata"))
	}))
	defer internal.Close()

	front := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internal.URL+"/latest/meta-data", http.StatusFound)
	}))
	defer front.Close()

	v := NewValidator(Config{BlockPrivateNetworks: true})
	client := &http.Client{CheckRedirect: v.CheckRedirect}

	resp, err := client.Get(front.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected the redirect to be refused")
	}
	var issue *Issue
	if !errors.As(err, &issue) || issue.Type != "private_address" {
		t.Fatalf("expected private_address issue, got %v", err)
	}
	if reachedInternal {
		t.Error("redirect target was contacted")
	}
}

func TestValidator_CheckRedirectLimit(t *testing.T) {
	v := NewValidator(DefaultConfig())
	req := httptest.NewRequest(http.MethodGet, "https://recipes.example/soup", nil)
	if err := v.CheckRedirect(req, make([]*http.Request, 3)); err != nil {
		t.Errorf("short chain refused: %v", err)
	}
	if err := v.CheckRedirect(req, make([]*http.Request, 10)); err == nil {
		t.Error("expected the redirect chain to be cut off")
	}
}

func TestValidator_DialControl(t *testing.T) {
	blocking := NewValidator(Config{BlockPrivateNetworks: true})
	open := NewValidator(DefaultConfig())

	tests := []struct {
		address string
		refused bool
	}{
		{"127.0.0.1:80", true},
		{"[::1]:443", true},
		{"169.254.169.254:80", true},
		{"192.168.1.10:8080", true},
		{"93.184.216.34:443", false},
	}
	for _, tt := range tests {
		err := blocking.DialControl("tcp", tt.address, nil)
		if (err != nil) != tt.refused {
			t.Errorf("DialControl(%s) = %v, refused want %v", tt.address, err, tt.refused)
		}
		if err := open.DialControl("tcp", tt.address, nil); err != nil {
			t.Errorf("policy off: DialControl(%s) = %v", tt.address, err)
		}
	}
}
