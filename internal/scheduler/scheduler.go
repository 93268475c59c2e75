package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"KillZoneSentinel/internal/agent"
	"KillZoneSentinel/internal/collector"
	"KillZoneSentinel/internal/model"
	"KillZoneSentinel/internal/notifier"
	"KillZoneSentinel/internal/recorder"
)

// Scheduler manages all cron tasks of a paper-trading session.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Agent     *agent.Agent
	Notifier  *notifier.TelegramNotifier
	Recorder  recorder.Recorder
	ExportDir string
	Location  *time.Location
	Ctx       context.Context
}

// NewScheduler creates a new Scheduler. Cron specs are evaluated in loc and carry a seconds field.
func NewScheduler(ctx context.Context, col *collector.Collector, ag *agent.Agent, tn *notifier.TelegramNotifier, rec recorder.Recorder, exportDir string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		Collector: col,
		Agent:     ag,
		Notifier:  tn,
		Recorder:  rec,
		ExportDir: exportDir,
		Location:  loc,
		Ctx:       ctx,
	}
}

// RegisterAll registers the poll, daily and weekly tasks.
func (s *Scheduler) RegisterAll(pollCron, dailyCron, weeklyCron string) error {
	if _, err := s.Cron.AddFunc(pollCron, s.pollTask); err != nil {
		return fmt.Errorf("register poll task: %w", err)
	}
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	if _, err := s.Cron.AddFunc(weeklyCron, s.weeklyTask); err != nil {
		return fmt.Errorf("register weekly task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunPollNow fetches and processes new bars immediately.
func (s *Scheduler) RunPollNow() (int, error) {
	return s.Collector.Collect(s.Ctx, s.Agent)
}

func (s *Scheduler) pollTask() {
	n, err := s.RunPollNow()
	if err != nil {
		log.Error().Err(err).Msg("poll bars")
		return
	}
	log.Debug().Int("bars", n).Msg("poll complete")
}

func (s *Scheduler) dailyTask() {
	now := time.Now().In(s.Location)
	log.Info().Str("day", now.Format("2006-01-02")).Msg("running daily task")
	path, err := s.Recorder.ExportCSV(now, s.ExportDir)
	if err != nil {
		log.Error().Err(err).Msg("export daily events")
	} else if path != "" {
		log.Info().Str("path", path).Msg("daily events exported")
	}
	st := s.Agent.Status()
	s.trySend(notifier.FormatDailyReport(now, s.Agent.Stats(), st.Account, path))
}

func (s *Scheduler) weeklyTask() {
	acct := s.Agent.Status().Account
	log.Info().Float64("weekly_pnl", acct.WeeklyPnL).Float64("equity", acct.Equity).Msg("weekly report")
	s.trySend(notifier.FormatWeeklyReport(acct))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/status":
		return notifier.FormatStatus(s.Agent.Status())
	case "/summary":
		return notifier.FormatStats(s.Agent.Stats())
	case "/orders":
		return notifier.FormatOrders(s.Agent.OpenOrders())
	case "/poll":
		n, err := s.RunPollNow()
		if err != nil {
			return fmt.Sprintf("❌ poll failed: %v", err)
		}
		return fmt.Sprintf("Processed %d new bars", n)
	default:
		return "Commands:\n• /status\n• /summary\n• /orders\n• /poll"
	}
}

// OnOrderEvent forwards lifecycle events to Telegram without blocking the agent.
func (s *Scheduler) OnOrderEvent(o model.OrderPlan, evt model.OrderEvent, acct model.AccountState) {
	go s.trySend(notifier.FormatOrderEvent(o, evt, acct))
}

// OnHalt forwards halts to Telegram without blocking the agent.
func (s *Scheduler) OnHalt(h model.HaltEvent) {
	go s.trySend(notifier.FormatHalt(h))
}

func (s *Scheduler) trySend(text string) {
	if !s.Notifier.Enabled() {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
