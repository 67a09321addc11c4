package cron

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	tracingLog "github.com/opentracing/opentracing-go/log"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/customeros/mailbridge/interfaces"
	cron_config "github.com/customeros/mailbridge/internal/cron/config"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/internal/utils"
)

// CONSTANTS
const (
	// GroupLedger is the group for sandbox ledger jobs
	GroupLedger = "ledger"
	// GroupRelay is the group for relay jobs
	GroupRelay = "relay"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second

	// AppSource marks work started by cron jobs
	AppSource = "mailbridge-cron"

	JobHeartbeat       = "heartbeat"
	JobBlockProduction = "block_production"
	JobImapPoll        = "imap_poll"
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupLedger: new(sync.Mutex),
		GroupRelay:  new(sync.Mutex),
	},
}

type CronManager struct {
	log      logger.Logger
	cron     *cronv3.Cron
	k8s      kubernetes.Interface
	stopCh   chan struct{}
	stopOnce sync.Once
	jobIDs   map[string]cronv3.EntryID
	blocks   interfaces.BlockProducer
	poller   interfaces.IMAPService
}

func NewCronManager(log logger.Logger, k8s kubernetes.Interface, blocks interfaces.BlockProducer, poller interfaces.IMAPService) *CronManager {
	return &CronManager{
		log:    log,
		k8s:    k8s,
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
		blocks: blocks,
		poller: poller,
	}
}

// Start initializes and starts the cron manager with leader election
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start(podName, namespace string) error {
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		cm.StartCron()
		return nil
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      "mailbridge-cron-leader",
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					cm.StartCron()
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		le.Run(context.Background())
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	cm.stopOnce.Do(func() {
		if cm.cron != nil {
			cm.log.Info("Stopping cron manager")
			ctx := cm.cron.Stop()
			// Wait for jobs to finish
			<-ctx.Done()
		}
		close(cm.stopCh)
	})
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	if cronConfig.CronScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		cm.addJob(c, JobHeartbeat, cronConfig.CronScheduleHeartbeat, func() {
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
	}

	if cronConfig.CronScheduleBlockProduction != "" && cm.blocks != nil {
		cm.addJob(c, JobBlockProduction, cronConfig.CronScheduleBlockProduction, func() {
			jobLocks.locks[GroupLedger].Lock()
			defer jobLocks.locks[GroupLedger].Unlock()
			cm.produceBlock()
		})
	}

	if cronConfig.CronScheduleImapPoll != "" && cm.poller != nil {
		cm.addJob(c, JobImapPoll, cronConfig.CronScheduleImapPoll, func() {
			jobLocks.locks[GroupRelay].Lock()
			defer jobLocks.locks[GroupRelay].Unlock()
			cm.pollMailboxes()
		})
	}
}

func (cm *CronManager) addJob(c *cronv3.Cron, name, schedule string, job func()) {
	id, err := c.AddFunc(schedule, func() {
		defer tracing.RecoverAndLogToJaeger(cm.log)
		job()
	})
	if err != nil {
		cm.log.Fatalf("Could not add %s cron job: %v", name, err)
	}
	cm.jobIDs[name] = id
	cm.log.Infof("Registered %s job with schedule: %s", name, schedule)
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

func (cm *CronManager) produceBlock() {
	span, ctx := tracing.StartTracerSpan(utils.SetAppSourceInContext(context.Background(), AppSource), "CronManager.produceBlock")
	defer span.Finish()
	tracing.SetDefaultCronSpanTags(ctx, span)

	block, err := cm.blocks.ProduceBlock(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to produce block: %v", err)
		return
	}
	if block == nil {
		return
	}

	span.LogFields(tracingLog.Uint64("height", block.Height), tracingLog.Int("receipts", len(block.ReceiptIDs)))
	cm.log.Debugf("Produced block %d with %d receipts", block.Height, len(block.ReceiptIDs))
}

func (cm *CronManager) pollMailboxes() {
	span, ctx := tracing.StartTracerSpan(utils.SetAppSourceInContext(context.Background(), AppSource), "CronManager.pollMailboxes")
	defer span.Finish()
	tracing.SetDefaultCronSpanTags(ctx, span)

	cm.poller.PollAll(ctx)
}
