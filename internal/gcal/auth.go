package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const (
	callbackTimeout = 5 * time.Minute
	exchangeTimeout = 30 * time.Second
)

// ErrNoToken is returned when the token file does not exist yet.
var ErrNoToken = errors.New("no google token (run: tuido auth google)")

// OAuthConfig reads the OAuth client credentials downloaded from the Google
// Cloud console.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read google credentials: %w", err)
	}

	conf, err := google.ConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("invalid google credentials: %w", err)
	}
	return conf, nil
}

// LoadToken reads a token saved by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok with mode 0600.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

// HTTPClient returns an HTTP client that refreshes the stored token as needed.
func HTTPClient(ctx context.Context, credentialsFile, tokenFile string) (*http.Client, error) {
	conf, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, tok)), nil
}

// Login runs the installed-app flow: it prints the consent URL to out, waits
// for the redirect on a loopback listener and saves the resulting token.
func Login(ctx context.Context, conf *oauth2.Config, tokenFile string, out io.Writer) error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen for oauth callback: %w", err)
	}
	defer listener.Close()

	conf.RedirectURL = fmt.Sprintf("http://%s/callback", listener.Addr().String())

	verifier := oauth2.GenerateVerifier()
	state := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	fmt.Fprintln(out, "Open this URL in your browser:")
	fmt.Fprintln(out, authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- errors.New("oauth state mismatch")
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "no code in callback", http.StatusBadRequest)
			errCh <- errors.New("no code in oauth callback")
			return
		}
		fmt.Fprint(w, "Authentication successful. You may close this window.")
		codeCh <- code
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-time.After(callbackTimeout):
		return errors.New("oauth callback timed out")
	case <-ctx.Done():
		return ctx.Err()
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	tok, err := conf.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	return SaveToken(tokenFile, tok)
}
