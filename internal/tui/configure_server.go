package tui

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprlingo/internal/config"
)

func editServer(cfg *config.Config) error {
	address := cfg.Server.Address
	origins := strings.Join(cfg.Server.AllowedOrigins, ", ")
	maxUpload := strconv.FormatInt(cfg.Server.MaxUploadMB, 10)
	ping := cfg.Server.PingInterval.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("host:port for the websocket and REST API").
				Value(&address).
				Validate(validateAddress),
			huh.NewInput().
				Title("Allowed Origins").
				Description("Comma-separated browser origins (empty allows any)").
				Placeholder("https://app.example.com").
				Value(&origins),
			huh.NewInput().
				Title("Max Upload (MB)").
				Description("Largest audio file accepted by /api/upload").
				Value(&maxUpload).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Ping Interval").
				Description("Websocket keepalive (e.g. 30s)").
				Value(&ping).
				Validate(validateDuration),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Server.Address = strings.TrimSpace(address)
	cfg.Server.AllowedOrigins = parseList(origins)
	cfg.Server.MaxUploadMB, _ = strconv.ParseInt(strings.TrimSpace(maxUpload), 10, 64)
	cfg.Server.PingInterval, _ = time.ParseDuration(strings.TrimSpace(ping))
	return nil
}
