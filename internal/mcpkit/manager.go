package mcpkit

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/sjzar/mcpkit/internal/errors"
	"github.com/sjzar/mcpkit/internal/mcp"
	"github.com/sjzar/mcpkit/internal/mcpkit/conf"
	"github.com/sjzar/mcpkit/internal/mcpkit/http"
	"github.com/sjzar/mcpkit/internal/mcpkit/service"
	"github.com/sjzar/mcpkit/pkg/config"
)

// Manager wires the config, the MCP service and a transport together.
type Manager struct {
	sc  *conf.ServerConfig
	scm *config.Manager

	service   *service.Service
	processor *mcp.Processor
	http      *http.Service
}

func New() *Manager {
	return &Manager{}
}

func (m *Manager) load(configPath string, cmdConf map[string]any) error {
	var err error
	m.sc, m.scm, err = conf.LoadServiceConfig(configPath, cmdConf)
	if err != nil {
		return err
	}

	m.service = service.NewService(m.sc)
	m.processor = mcp.NewProcessor(m.service, m.sc.GetMaxConcurrency())
	return nil
}

// CommandHTTPServer serves the inline and SSE transports until ctx is done.
func (m *Manager) CommandHTTPServer(ctx context.Context, configPath string, cmdConf map[string]any) error {
	if err := m.load(configPath, cmdConf); err != nil {
		return err
	}

	if err := m.service.Start(); err != nil {
		return err
	}

	m.http = http.NewService(m.sc, mcp.NewMCP(m.processor))

	go func() {
		<-ctx.Done()
		if err := m.http.Stop(); err != nil {
			log.Err(err).Msg("failed to stop http server")
		}
	}()

	return errors.JoinErrors(m.http.ListenAndServe(), m.service.Stop())
}

// CommandStdio serves newline delimited documents from r until r is
// exhausted or ctx is done.
func (m *Manager) CommandStdio(ctx context.Context, configPath string, cmdConf map[string]any, r io.Reader, w io.Writer) error {
	if err := m.load(configPath, cmdConf); err != nil {
		return err
	}

	if err := m.service.Start(); err != nil {
		return err
	}
	defer m.stopService()

	log.Info().Str("server", m.sc.GetServerName()).Msg("serving on stdio")
	return mcp.NewStdio(m.processor, r, w).Serve(ctx)
}

func (m *Manager) stopService() {
	if err := m.service.Stop(); err != nil {
		log.Err(err).Msg("failed to stop service")
	}
}
