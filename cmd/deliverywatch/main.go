// deliverywatch logs in to a couriertrack server and streams live frames to
// the console, following the given deliveries' location updates.
// Usage: go run ./cmd/deliverywatch --server http://localhost:8080 \
//	--email courier@example.com --password secret --deliveries 42,43
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/avelichko/couriertrack/internal/apiclient"
	"github.com/avelichko/couriertrack/internal/event"
	"github.com/avelichko/couriertrack/internal/wsclient"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "server base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password (or COURIERTRACK_PASSWORD)")
	deliveries := flag.String("deliveries", "", "comma-separated delivery ids to follow")
	verbose := flag.Bool("verbose", false, "print full frame JSON")
	flag.Parse()

	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *password == "" {
		*password = os.Getenv("COURIERTRACK_PASSWORD")
	}
	if *email == "" || *password == "" {
		logger.Error("email and password are required")
		os.Exit(1)
	}

	ids, err := parseDeliveryIDs(*deliveries)
	if err != nil {
		logger.Error("bad -deliveries value", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Log in over REST to obtain the live-channel credential.
	rest := apiclient.New(*serverURL, apiclient.WithLogger(logger))
	login, err := rest.Login(ctx, *email, *password)
	if err != nil {
		logger.Error("login failed", "error", err)
		os.Exit(1)
	}
	logger.Info("logged in",
		"user_id", login.User.ID,
		"role", string(login.User.Role),
	)

	client := wsclient.New(wsclient.Config{
		URL:   wsEndpoint(*serverURL),
		Token: login.Tokens.AccessToken,
	}, logger)

	// Connectivity indicator.
	client.OnStateChange(func(s wsclient.State, attempt int) {
		switch s {
		case wsclient.StateOpen:
			fmt.Println("[connected]")
		case wsclient.StateBackoff:
			fmt.Printf("[disconnected, retry %d]\n", attempt)
		case wsclient.StateGivenUp:
			fmt.Println("[connection lost for good]")
		}
	})

	if err := client.Start(ctx); err != nil {
		logger.Error("failed to start live client", "error", err)
		os.Exit(1)
	}

	for _, id := range ids {
		if err := client.Subscribe(id); err != nil {
			logger.Warn("subscribe failed", "delivery_id", id, "error", err)
		}
	}

	// Periodic stats line.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := client.Stats()
				logger.Info("stats",
					"state", string(stats.State),
					"opens", stats.Opens,
					"frames", stats.FramesReceived,
					"subscriptions", stats.Subscriptions,
				)
			}
		}
	}()

	logger.Info("watching - press Ctrl+C to stop", "deliveries", ids)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Stop(shutdownCtx)
			logger.Info("stopped")
			return

		case frame, ok := <-client.Frames():
			if !ok {
				logger.Info("live channel closed")
				return
			}
			printFrame(frame, *verbose)
		}
	}
}

// parseDeliveryIDs splits "42,43" into ids. Empty input is allowed; the
// watcher then prints only broadcast frames.
func parseDeliveryIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// wsEndpoint converts the REST base URL into the WebSocket endpoint.
func wsEndpoint(serverURL string) string {
	ws := strings.TrimSuffix(serverURL, "/")
	ws = strings.Replace(ws, "http://", "ws://", 1)
	ws = strings.Replace(ws, "https://", "wss://", 1)
	return ws + "/ws"
}

func printFrame(f event.Frame, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(f, "", "  ")
		fmt.Printf("[%s] %s\n", strings.ToUpper(string(f.Type)), data)
		return
	}

	switch f.Type {
	case event.KindConnectionEstablished:
		fmt.Printf("[SESSION] user=%d role=%s\n", f.UserID, f.Role)
	case event.KindDeliveryLocation:
		fmt.Printf("[LOCATION] delivery=%d lat=%.6f lng=%.6f at=%s\n",
			f.DeliveryID, f.Lat, f.Lng, f.Timestamp)
	case event.KindPackageStatusUpdated:
		fmt.Printf("[STATUS] package=%s %s -> %s\n", f.TrackingNumber, f.OldStatus, f.NewStatus)
	case event.KindPackageAssignedToYou:
		fmt.Printf("[ASSIGNED TO YOU] package=%s pickup=%s\n", f.TrackingNumber, f.PickupAddress)
	case event.KindPackageAssigned:
		fmt.Printf("[ASSIGNED] package=%s courier=%d\n", f.TrackingNumber, f.CourierID)
	case event.KindNewPackageAvailable:
		fmt.Printf("[AVAILABLE] package=%s pickup=%s\n", f.TrackingNumber, f.PickupAddress)
	case event.KindPackageCreated:
		fmt.Printf("[CREATED] package=%s sender=%d\n", f.TrackingNumber, f.SenderID)
	case event.KindSystemAnnouncement:
		fmt.Printf("[ANNOUNCEMENT] %s\n", f.Message)
	case event.KindDeliverySubscribed:
		fmt.Printf("[SUBSCRIBED] delivery=%d\n", f.DeliveryID)
	case event.KindDeliveryUnsubscribed:
		fmt.Printf("[UNSUBSCRIBED] delivery=%d\n", f.DeliveryID)
	default:
		fmt.Printf("[%s] %s\n", strings.ToUpper(string(f.Type)), f.Timestamp)
	}
}
