package worker

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/config"
	"github.com/spec-kit/shopbot/internal/observability"
	"github.com/spec-kit/shopbot/internal/panel"
)

// pruneLimit bounds how many recent messages are scanned for stale panels
// before each repost.
const pruneLimit = 10

// PanelPoster is the slice of the messenger the worker needs.
type PanelPoster interface {
	Send(ctx context.Context, channelID string, data *discordgo.MessageSend) (string, error)
	PruneBotMessages(ctx context.Context, channelID string, limit int)
}

// DashboardWorker keeps the shop panel and the product dashboard posted. The
// shop panel is static and posted once; the dashboard is reposted on a fixed
// cadence so button config edits show up without a restart.
type DashboardWorker struct {
	poster   PanelPoster
	discord  config.DiscordConfig
	panelCfg config.PanelConfig
	shopURL  string
	logger   *zap.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewDashboardWorker constructs the worker.
func NewDashboardWorker(poster PanelPoster, discord config.DiscordConfig, panelCfg config.PanelConfig, shopURL string, logger *zap.Logger) *DashboardWorker {
	return &DashboardWorker{
		poster:   poster,
		discord:  discord,
		panelCfg: panelCfg,
		shopURL:  shopURL,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start posts the shop panel, then refreshes the dashboard until Stop.
func (w *DashboardWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop signals the loop and waits for it to exit.
func (w *DashboardWorker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *DashboardWorker) run(ctx context.Context) {
	defer close(w.done)

	w.postShopPanel(ctx)
	w.refreshDashboard(ctx)

	ticker := time.NewTicker(w.panelCfg.RefreshInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.refreshDashboard(ctx)
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *DashboardWorker) postShopPanel(ctx context.Context) {
	if w.discord.ShopChannelID == "" {
		return
	}
	w.poster.PruneBotMessages(ctx, w.discord.ShopChannelID, pruneLimit)
	if _, err := w.poster.Send(ctx, w.discord.ShopChannelID, panel.ShopMessage(w.shopURL)); err != nil {
		observability.SwallowedFailures.WithLabelValues("shop_panel_post").Inc()
		w.logger.Error("failed to post shop panel",
			zap.String("channel_id", w.discord.ShopChannelID), zap.Error(err))
	}
}

func (w *DashboardWorker) refreshDashboard(ctx context.Context) {
	if w.discord.RedeemChannelID == "" {
		return
	}
	buttons, err := panel.Load(w.panelCfg.ButtonConfigPath, w.logger)
	if err != nil {
		observability.SwallowedFailures.WithLabelValues("panel_config_load").Inc()
		w.logger.Error("failed to load button config", zap.String("path", w.panelCfg.ButtonConfigPath), zap.Error(err))
		return
	}

	w.poster.PruneBotMessages(ctx, w.discord.RedeemChannelID, pruneLimit)
	if _, err := w.poster.Send(ctx, w.discord.RedeemChannelID, panel.DashboardMessage(buttons)); err != nil {
		observability.SwallowedFailures.WithLabelValues("dashboard_post").Inc()
		w.logger.Error("failed to post dashboard",
			zap.String("channel_id", w.discord.RedeemChannelID), zap.Error(err))
		return
	}
	observability.PanelRefreshes.Inc()
	w.logger.Debug("dashboard refreshed", zap.Int("buttons", len(buttons)))
}
