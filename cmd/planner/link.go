package main

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/moneyplanner/internal/certs"
	"github.com/Veraticus/moneyplanner/internal/cli"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/planner"
)

const linkTimeout = 10 * time.Minute

var linkPage = template.Must(template.New("link").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Connect Your Bank - Planner</title>
    <script src="https://cdn.plaid.com/link/v2/stable/link-initialize.js"></script>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background-color: #f5f5f5; }
        .container { text-align: center; background: white; padding: 40px; border-radius: 8px;
                     box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
        button { background-color: #2E8B57; color: white; padding: 12px 24px;
                 font-size: 16px; border: none; border-radius: 4px; cursor: pointer; }
        .error { color: #d32f2f; margin-top: 20px; }
        .success { color: #388e3c; margin-top: 20px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Connect Your Bank Account</h1>
        <p>Click the button below to securely connect your bank through Plaid.</p>
        <button id="link-button">Connect Bank Account</button>
        <div id="message"></div>
    </div>
    <script>
    const message = document.getElementById('message');
    const linkHandler = Plaid.create({
        token: {{.}},
        onSuccess: (public_token, metadata) => {
            message.innerHTML = '<div class="success">Processing connection...</div>';
            fetch('/exchange', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ public_token, metadata })
            })
            .then(response => response.json())
            .then(data => {
                if (data.success) {
                    message.innerHTML = '<div class="success">Connected! You can close this window.</div>';
                } else {
                    message.innerHTML = '<div class="error">' + (data.error || 'Connection failed') + '</div>';
                }
            })
            .catch(error => {
                message.innerHTML = '<div class="error">Network error: ' + error + '</div>';
            });
        },
        onExit: (err) => {
            if (err != null) {
                message.innerHTML = '<div class="error">Connection canceled or failed.</div>';
            }
        }
    });
    document.getElementById('link-button').onclick = () => linkHandler.open();
    </script>
</body>
</html>`))

type exchangeRequest struct {
	PublicToken string `json:"public_token"`
	Metadata    struct {
		Institution planner.Institution `json:"institution"`
	} `json:"metadata"`
}

func linkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Connect a bank account via Plaid Link",
		Long: `Connect a bank account using Plaid Link.

This starts a local web server, opens Plaid Link in your browser and
stores the connection once you finish. Run it again to add more banks.

In the production Plaid environment the page is served over HTTPS with a
self-signed localhost certificate, so expect a browser warning.`,
		RunE: runLink,
	}
	cmd.Flags().String("addr", "localhost:8080", "Address for the local link server")
	return cmd
}

func runLink(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	addr, _ := cmd.Flags().GetString("addr")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	linkToken, err := a.planner.CreateLinkToken(ctx, a.user())
	if err != nil {
		return fmt.Errorf("failed to create link token: %w", err)
	}

	successChan := make(chan *model.PlaidItem, 1)
	errorChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := linkPage.Execute(w, linkToken); err != nil {
			slog.Warn("Failed to render link page", "error", err)
		}
	})
	mux.HandleFunc("POST /exchange", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req exchangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PublicToken == "" {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Invalid request"})
			return
		}

		item, err := a.planner.ExchangeToken(r.Context(), a.user(), req.PublicToken, req.Metadata.Institution)
		if err != nil {
			select {
			case errorChan <- fmt.Errorf("failed to exchange token: %w", err):
			default:
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Failed to exchange token"})
			return
		}

		select {
		case successChan <- item:
		default:
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheme := "http"
	if a.cfg.Plaid.Environment == "production" {
		certDir, err := certDirectory()
		if err != nil {
			return err
		}
		cert, err := certs.NewStore(certDir).Localhost()
		if err != nil {
			return fmt.Errorf("failed to get localhost certificate: %w", err)
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		scheme = "https"
		fmt.Println(cli.FormatWarning("Your browser will warn about the self-signed certificate. Choose to proceed to localhost."))
	}

	go func() {
		var err error
		if server.TLSConfig != nil {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errorChan <- fmt.Errorf("failed to start link server: %w", err):
			default:
			}
		}
	}()
	defer func() {
		if err := server.Close(); err != nil {
			slog.Warn("Failed to stop link server", "error", err)
		}
	}()

	browserURL := scheme + "://" + addr
	fmt.Println(cli.FormatInfo("Opening your browser to connect a bank account..."))
	fmt.Println(cli.SubtleStyle.Render("If it doesn't open, visit " + browserURL))
	openBrowser(browserURL)

	select {
	case item := <-successChan:
		fmt.Println(cli.FormatSuccess("Connected " + item.InstitutionName))
		fmt.Println(cli.SubtleStyle.Render("Run 'planner sync' to pull transactions."))
		return nil
	case err := <-errorChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(linkTimeout):
		return fmt.Errorf("timed out waiting for bank connection")
	}
}

// certDirectory is where the localhost certificate for the link page lives.
func certDirectory() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "planner", "certs"), nil
}

func openBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start() //nolint:gosec
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start() //nolint:gosec
	case "darwin":
		err = exec.Command("open", url).Start() //nolint:gosec
	}
	if err != nil {
		slog.Debug("Failed to open browser", "error", err)
	}
}
