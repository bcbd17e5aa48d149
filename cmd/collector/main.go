package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"equipment-analytics-api/config"
	"equipment-analytics-api/history"
	"equipment-analytics-api/models"
	"equipment-analytics-api/services"
)

// UploadPayload is what plant gateways publish: one CSV export per message.
type UploadPayload struct {
	Filename string `json:"filename"`
	CSV      string `json:"csv"`
}

var (
	msgsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiviz_collector_messages_received_total",
		Help: "Total number of MQTT messages received by collector.",
	})
	msgsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiviz_collector_datasets_stored_total",
		Help: "Total number of uploads analysed and stored.",
	})
	msgsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiviz_collector_messages_failed_total",
		Help: "Total number of messages rejected or failed to store.",
	})
)

type ingester interface {
	Ingest(ctx context.Context, owner uint, filename string, data []byte) (*models.Dataset, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg.Log).With("component", "collector")

	db, err := history.OpenPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}
	store := history.NewGormStore(db)
	if err := store.AutoMigrate(); err != nil {
		log.Fatalf("migrate datasets: %v", err)
	}

	pipeline := services.NewPipeline(ctx, cfg, store, logger)
	defer pipeline.Close()

	go serveHTTP(cfg.MQTT.MetricsAddr, logger)

	clientID := cfg.MQTT.ClientID
	if clientID == "" {
		clientID = "collector-" + uuid.NewString()[:8]
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.BrokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	// Training is CPU bound; keep messages off the network goroutine.
	opts.SetOrderMatters(false)
	opts.SetDefaultPublishHandler(func(client mqtt.Client, message mqtt.Message) {
		if _, err := processMessage(ctx, pipeline.Analysis, message.Topic(), message.Payload(), cfg.MQTT.OwnerID); err != nil {
			logger.Warn("upload rejected", "topic", message.Topic(), "error", err)
		}
	})
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(cfg.MQTT.Topic, 1, nil)
		token.Wait()
		if token.Error() != nil {
			logger.Error("mqtt subscribe error", "error", token.Error())
			return
		}
		logger.Info("collector subscribed", "topic", cfg.MQTT.Topic)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if token.Error() != nil {
		log.Fatalf("mqtt connection failed: %v", token.Error())
	}

	logger.Info("collector running", "mqtt", cfg.MQTT.BrokerURL, "metrics", cfg.MQTT.MetricsAddr)

	<-ctx.Done()
	logger.Info("collector shutting down")
	client.Disconnect(250)
}

func serveHTTP(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("metrics server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("metrics server failed: %v", err)
	}
}

// ownerFromTopic reads the owner id from the last topic level
// (equiviz/uploads/<owner>). Topics without a numeric id fall back.
func ownerFromTopic(topic string, fallback uint) (uint, error) {
	last := topic[strings.LastIndex(topic, "/")+1:]
	if id, err := strconv.ParseUint(last, 10, 32); err == nil && id > 0 {
		return uint(id), nil
	}
	if fallback == 0 {
		return 0, fmt.Errorf("topic %q carries no owner id and MQTT_OWNER_ID is unset", topic)
	}
	return fallback, nil
}

func processMessage(ctx context.Context, ing ingester, topic string, payloadRaw []byte, fallbackOwner uint) (*models.Dataset, error) {
	msgsReceived.Inc()

	owner, err := ownerFromTopic(topic, fallbackOwner)
	if err != nil {
		msgsFailed.Inc()
		return nil, err
	}

	var payload UploadPayload
	if err := json.Unmarshal(payloadRaw, &payload); err != nil {
		msgsFailed.Inc()
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	if strings.TrimSpace(payload.CSV) == "" {
		msgsFailed.Inc()
		return nil, errors.New("missing csv in payload")
	}
	if payload.Filename == "" {
		payload.Filename = fmt.Sprintf("gateway-%s.csv", time.Now().UTC().Format("20060102T150405"))
	}

	d, err := ing.Ingest(ctx, owner, payload.Filename, []byte(payload.CSV))
	if err != nil {
		msgsFailed.Inc()
		return nil, err
	}

	msgsStored.Inc()
	return d, nil
}
