// Package zaplog backs the log_service.LogService interface with
// go.uber.org/zap, writing one append-only JSON log file per node under a
// configured log directory.
package zaplog

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meridianfs/namefs/internal/log_service"
)

type ZapLogService struct {
	logger *zap.Logger
	nodeID string
}

// New opens (creating if necessary) logDir/nodeID.log and returns a
// LogService that writes structured JSON records to it at minLevel or
// above. minLevel defaults to debug when omitted or empty.
func New(logDir, nodeID string, minLevel ...string) (*ZapLogService, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	level := zapcore.DebugLevel
	if len(minLevel) > 0 && minLevel[0] != "" {
		if err := level.UnmarshalText([]byte(minLevel[0])); err != nil {
			return nil, err
		}
	}

	file, err := os.OpenFile(filepath.Join(logDir, nodeID+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), level)
	logger := zap.New(core).With(zap.String("node_id", nodeID))

	return &ZapLogService{logger: logger, nodeID: nodeID}, nil
}

func fields(event log_service.LogEvent) []zap.Field {
	fs := make([]zap.Field, 0, len(event.Metadata)+1)
	if !event.Timestamp.IsZero() {
		fs = append(fs, zap.Time("event_ts", event.Timestamp))
	}
	for k, v := range event.Metadata {
		fs = append(fs, zap.Any(k, v))
	}
	return fs
}

func (ls *ZapLogService) Debug(event log_service.LogEvent) { ls.logger.Debug(event.Message, fields(event)...) }
func (ls *ZapLogService) Info(event log_service.LogEvent)  { ls.logger.Info(event.Message, fields(event)...) }
func (ls *ZapLogService) Warn(event log_service.LogEvent)  { ls.logger.Warn(event.Message, fields(event)...) }
func (ls *ZapLogService) Error(event log_service.LogEvent) { ls.logger.Error(event.Message, fields(event)...) }

// Sync flushes any buffered log entries; callers invoke it during shutdown.
func (ls *ZapLogService) Sync() error { return ls.logger.Sync() }

var _ log_service.LogService = (*ZapLogService)(nil)
