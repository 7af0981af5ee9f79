package jobs

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vyjcapital/vyj_backend/ledger"
	"github.com/vyjcapital/vyj_backend/repositories"
	"github.com/vyjcapital/vyj_backend/services"
	"github.com/vyjcapital/vyj_backend/utils"
	"github.com/vyjcapital/vyj_backend/websocket"
)

const (
	arrearsSweepHour  = 0
	interestSweepDay  = 1
	collectionsDigest = 8

	jobTimeout = 5 * time.Minute
)

// Scheduler drives the periodic sweeps: daily arrears accrual, monthly
// interest accrual on interest-only loans, and the 8:00 collections
// digest. A Redis lock keyed per job and day keeps multiple instances
// from running the same sweep twice.
type Scheduler struct {
	engine   *ledger.Engine
	repo     *repositories.LoanRepository
	redis    *redis.Client
	telegram *services.TelegramService
	hub      *websocket.Hub

	lastRun map[string]string
}

// NewScheduler wires the scheduler over the engine and its collaborators.
// redis may be nil; the sweeps then run without cross-instance locking.
func NewScheduler(engine *ledger.Engine, repo *repositories.LoanRepository, redisClient *redis.Client, telegram *services.TelegramService, hub *websocket.Hub) *Scheduler {
	return &Scheduler{
		engine:   engine,
		repo:     repo,
		redis:    redisClient,
		telegram: telegram,
		hub:      hub,
		lastRun:  make(map[string]string),
	}
}

// Start launches the scheduling loop in a goroutine
func (s *Scheduler) Start() {
	go s.run()
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for now := range ticker.C {
		if now.Hour() == arrearsSweepHour {
			s.runOncePerDay("arrears_sweep", now, s.runArrearsSweep)
		}
		if now.Day() == interestSweepDay && now.Hour() == 0 {
			s.runOncePerDay("interest_sweep", now, s.runInterestSweep)
		}
		if now.Hour() == collectionsDigest {
			s.runOncePerDay("collections_digest", now, s.runCollectionsDigest)
		}
	}
}

// runOncePerDay guards a job with an in-process marker plus a Redis lock
// so one invocation per day wins across instances. A sweep failure clears
// nothing: the batched write either fully applied or not at all, and the
// next day's run picks the loans up again.
func (s *Scheduler) runOncePerDay(name string, now time.Time, job func(ctx context.Context, now time.Time) error) {
	day := now.Format("2006-01-02")
	if s.lastRun[name] == day {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if !s.acquireLock(ctx, name, day) {
		s.lastRun[name] = day
		return
	}

	s.lastRun[name] = day
	if err := job(ctx, now); err != nil {
		log.Printf("job %s failed: %v", name, err)
	}
}

func (s *Scheduler) acquireLock(ctx context.Context, name, day string) bool {
	if s.redis == nil {
		return true
	}

	key := fmt.Sprintf("jobs:lock:%s:%s", name, day)
	ok, err := s.redis.SetNX(ctx, key, 1, 23*time.Hour).Result()
	if err != nil {
		log.Printf("job lock %s unavailable, proceeding: %v", key, err)
		return true
	}
	return ok
}

func (s *Scheduler) runArrearsSweep(ctx context.Context, now time.Time) error {
	count, err := s.engine.AccrueArrears(ctx, now)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	if s.hub != nil {
		s.hub.NotifyLoanArrears(map[string]interface{}{"loansCharged": count})
		s.hub.NotifySweepCompleted(map[string]interface{}{
			"sweep":        "arrears",
			"loansUpdated": count,
		})
	}
	utils.NotifyLoansInArrears(collectorTokens(), count)
	return nil
}

// collectorTokens lists the FCM devices that receive sweep alerts
func collectorTokens() []string {
	raw := os.Getenv("COLLECTOR_FCM_TOKENS")
	if raw == "" {
		return nil
	}
	var tokens []string
	for _, token := range strings.Split(raw, ",") {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func (s *Scheduler) runInterestSweep(ctx context.Context, now time.Time) error {
	count, err := s.engine.AccrueInterest(ctx, now)
	if err != nil {
		return err
	}
	if s.hub != nil && count > 0 {
		s.hub.NotifySweepCompleted(map[string]interface{}{
			"sweep":        "interest",
			"loansUpdated": count,
		})
	}
	return nil
}

// runCollectionsDigest sends the morning summary of loans due within a day
func (s *Scheduler) runCollectionsDigest(ctx context.Context, now time.Time) error {
	if s.telegram == nil || !s.telegram.Enabled() {
		return nil
	}

	loans, err := s.repo.ListDueWithin(ctx, now.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	message := fmt.Sprintf("🚀 *VYJ Capital - Collection Alerts (%s)*\n\n", now.Format("02/01"))
	if len(loans) == 0 {
		message += "No collections due today. 🎉"
	} else {
		for _, loan := range loans {
			due := ""
			if loan.NextDueDate != nil {
				due = loan.NextDueDate.Format("02/01")
			}
			message += fmt.Sprintf("👤 *%s*\n💰 Balance: $%.2f\n📅 Due: %s\n\n",
				loan.ClientName, loan.Principal, due)
		}
	}

	return s.telegram.SendMessage(ctx, message)
}
