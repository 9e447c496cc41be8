// Package health builds the status report served by /api/status.
package health

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"rentou/server/config"
)

const (
	StatusOnline   = "online"
	StatusError    = "error"
	StatusDegraded = "degraded"

	// Response header naming the postal-code provider that answered.
	ProviderHeader = "X-Cep-Provider"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ServiceStatus struct {
	Status    string                 `json:"status"`
	LatencyMs int64                  `json:"latencyMs"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type Report struct {
	Timestamp time.Time                `json:"timestamp"`
	Status    string                   `json:"status"`
	Services  map[string]ServiceStatus `json:"services"`
}

type Reporter struct {
	db       Pinger
	client   *http.Client
	baseURL  string
	probeCEP string
	region   string
	mode     string
	logger   *logrus.Logger
}

func NewReporter(cfg *config.Config, db Pinger, logger *logrus.Logger) *Reporter {
	return &Reporter{
		db:       db,
		client:   &http.Client{Timeout: cfg.Postal.Timeout * 2},
		baseURL:  strings.TrimSuffix(cfg.Server.PublicBaseURL, "/"),
		probeCEP: cfg.Health.ProbeCEP,
		region:   cfg.Server.Region,
		mode:     cfg.Server.Mode,
		logger:   logger,
	}
}

// Report runs the checks one after another. A failing check marks the report
// degraded; Report itself never fails.
func (r *Reporter) Report(ctx context.Context) Report {
	report := Report{
		Timestamp: time.Now().UTC(),
		Status:    StatusOnline,
		Services:  make(map[string]ServiceStatus, 3),
	}

	report.Services["database"] = r.checkDatabase(ctx)
	report.Services["cep"] = r.checkCEP(ctx)
	report.Services["sistema"] = r.checkSistema()

	for name, service := range report.Services {
		if service.Status == StatusError {
			report.Status = StatusDegraded
			r.logger.WithFields(logrus.Fields{
				"service": name,
				"message": service.Message,
			}).Warn("Health check failed")
		}
	}
	return report
}

func (r *Reporter) checkDatabase(ctx context.Context) (status ServiceStatus) {
	start := time.Now()
	defer func() {
		status.LatencyMs = time.Since(start).Milliseconds()
		if p := recover(); p != nil {
			status.Status = StatusError
			status.Message = fmt.Sprintf("Falha ao conectar ao banco de dados: %v", p)
		}
	}()

	if err := r.db.Ping(ctx); err != nil {
		return ServiceStatus{Status: StatusError, Message: "Falha ao conectar ao banco de dados: " + err.Error()}
	}
	return ServiceStatus{Status: StatusOnline, Message: "Banco de dados operacional"}
}

func (r *Reporter) checkCEP(ctx context.Context) ServiceStatus {
	start := time.Now()
	status := r.probeCEPService(ctx)
	status.LatencyMs = time.Since(start).Milliseconds()
	return status
}

func (r *Reporter) probeCEPService(ctx context.Context) ServiceStatus {
	endpoint := r.baseURL + "/api/cep?cep=" + url.QueryEscape(r.probeCEP)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ServiceStatus{Status: StatusError, Message: "Falha ao montar requisição de CEP: " + err.Error()}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return ServiceStatus{Status: StatusError, Message: "Serviço de CEP indisponível: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ServiceStatus{
			Status:   StatusError,
			Message:  fmt.Sprintf("Serviço de CEP respondeu com status %d", resp.StatusCode),
			Metadata: map[string]interface{}{"httpStatus": resp.StatusCode},
		}
	}

	provider := resp.Header.Get(ProviderHeader)
	if provider == "" {
		provider = "desconhecido"
	}
	return ServiceStatus{
		Status:  StatusOnline,
		Message: "Serviço de CEP operacional",
		Metadata: map[string]interface{}{
			"provider": provider,
			"cep":      r.probeCEP,
		},
	}
}

func (r *Reporter) checkSistema() ServiceStatus {
	return ServiceStatus{
		Status:  StatusOnline,
		Message: "Sistema operacional",
		Metadata: map[string]interface{}{
			"region":    r.region,
			"mode":      r.mode,
			"goVersion": runtime.Version(),
		},
	}
}
