//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lorenzoconte/exizt/blockd/internal/daemon"
	"github.com/lorenzoconte/exizt/blockd/internal/domain"
	"github.com/lorenzoconte/exizt/blockd/internal/infra"
	"github.com/lorenzoconte/exizt/blockd/internal/policy"
	"github.com/lorenzoconte/exizt/blockd/internal/usecase"
	"github.com/lorenzoconte/exizt/blockd/test/fixtures"
)

const (
	ownPackage = "com.lorenzoconte.Exizt"
	socialApp  = "com.x.social"
	notesApp   = "com.safe.notes"
)

var _ = Describe("Blocking listener", func() {
	var (
		tmpDir      string
		eventsPath  string
		actionsPath string
		key         []byte
		store       *infra.FilePolicyStore
		settings    *usecase.Settings
		logger      *zap.Logger
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "blockd-integration-*")
		Expect(err).NotTo(HaveOccurred())

		eventsPath = filepath.Join(tmpDir, "events.ndjson")
		actionsPath = filepath.Join(tmpDir, "actions.ndjson")

		key, err = infra.EnsureKey(infra.NewFileKeyProvider(tmpDir))
		Expect(err).NotTo(HaveOccurred())

		store, err = infra.NewFilePolicyStore(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		logger = zap.NewNop()
		settings = usecase.NewSettings(store, logger)
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	// runListener wires the full stack over real files and runs the
	// listener until the scripted event stream is exhausted.
	runListener := func(script *fixtures.EventScript) {
		Expect(script.WriteTo(eventsPath)).To(Succeed())

		usageDB, err := infra.NewEncryptedUsageLog(tmpDir, key)
		Expect(err).NotTo(HaveOccurred())
		defer usageDB.Close()

		events, err := infra.OpenEventStream(eventsPath)
		Expect(err).NotTo(HaveOccurred())
		defer events.Close()

		actions, err := infra.OpenActionWriter(actionsPath)
		Expect(err).NotTo(HaveOccurred())
		defer actions.Close()

		probe := infra.NewProcessProbe()
		registry := infra.NewFileListenerRegistry(tmpDir, probe)

		aggregator := usecase.NewAggregator(usageDB, ownPackage, nil, logger)
		appBlocker := usecase.NewAppBlocker(store, aggregator, ownPackage, nil, logger)
		contentBlocker := usecase.NewContentBlocker(store, policy.NewRegistry(), logger)
		interventer := usecase.NewInterventer(actions, actions, 5*time.Millisecond, logger)
		recorder := usecase.NewRecorder(usageDB, logger)

		listener := daemon.NewListener(
			daemon.DefaultListenerConfig(),
			events,
			appBlocker,
			contentBlocker,
			interventer,
			recorder,
			store,
			aggregator,
			registry,
			probe,
			"integration",
			logger,
		)

		Expect(listener.Run(context.Background())).To(Succeed())
	}

	readActions := func() []fixtures.Action {
		actions, err := fixtures.ReadActions(actionsPath)
		Expect(err).NotTo(HaveOccurred())
		return actions
	}

	Describe("deny-list blocking", func() {
		BeforeEach(func() {
			Expect(settings.SetBlockedApps([]string{socialApp})).To(Succeed())
			Expect(settings.SetBlockingActive(true)).To(Succeed())
		})

		It("redirects home and warns when a denied app comes to the foreground", func() {
			now := time.Now()
			runListener(fixtures.NewEventScript().
				WindowState(notesApp, now).
				WindowState(socialApp, now.Add(time.Second)))

			Eventually(readActions, time.Second, 10*time.Millisecond).Should(ContainElements(
				fixtures.Action{Action: "home"},
				fixtures.Action{Action: "warn", Package: socialApp, ClearTask: true},
			))
		})

		It("leaves allowed apps alone", func() {
			runListener(fixtures.NewEventScript().WindowState(notesApp, time.Now()))

			Consistently(readActions, 100*time.Millisecond, 20*time.Millisecond).Should(BeEmpty())
		})

		It("never blocks the app's own surfaces", func() {
			Expect(settings.SetBlockedApps([]string{ownPackage})).To(Succeed())

			runListener(fixtures.NewEventScript().WindowState(ownPackage, time.Now()))

			Consistently(readActions, 100*time.Millisecond, 20*time.Millisecond).Should(BeEmpty())
		})
	})

	Describe("group time budgets", func() {
		BeforeEach(func() {
			Expect(settings.SaveAppGroup("social", []string{socialApp}, 30)).To(Succeed())
		})

		It("blocks a group member once the daily budget is spent", func() {
			// Pre-record 31 minutes of usage earlier today.
			usageDB, err := infra.NewEncryptedUsageLog(tmpDir, key)
			Expect(err).NotTo(HaveOccurred())
			now := time.Now()
			Expect(usageDB.AppendSession(context.Background(), domain.UsageSession{
				ID:      uuid.NewString(),
				Package: socialApp,
				Start:   now.Add(-time.Hour),
				End:     now.Add(-29 * time.Minute),
			})).To(Succeed())
			Expect(usageDB.Close()).To(Succeed())

			runListener(fixtures.NewEventScript().WindowState(socialApp, now))

			Eventually(readActions, time.Second, 10*time.Millisecond).Should(ContainElements(
				fixtures.Action{Action: "home"},
				fixtures.Action{Action: "warn", Package: socialApp, ClearTask: true},
			))
		})

		It("allows a group member while budget remains", func() {
			runListener(fixtures.NewEventScript().WindowState(socialApp, time.Now()))

			Consistently(readActions, 100*time.Millisecond, 20*time.Millisecond).Should(BeEmpty())
		})
	})

	Describe("content blocking", func() {
		BeforeEach(func() {
			Expect(settings.SetContentBlockEnabled(true)).To(Succeed())
		})

		It("silently bounces a reels surface", func() {
			runListener(fixtures.NewEventScript().ContentWithView(
				"com.instagram.android",
				"com.instagram.android:id/root_clips_layout",
				time.Now()))

			Eventually(readActions, time.Second, 10*time.Millisecond).Should(ConsistOf(
				fixtures.Action{Action: "home"},
			))
		})

		It("bounces short-video-only apps on any content event", func() {
			runListener(fixtures.NewEventScript().Scrolled("com.zhiliaoapp.musically", time.Now()))

			Eventually(readActions, time.Second, 10*time.Millisecond).Should(ConsistOf(
				fixtures.Action{Action: "home"},
			))
		})

		It("ignores ordinary app content", func() {
			runListener(fixtures.NewEventScript().ContentWithView(
				notesApp, notesApp+":id/editor", time.Now()))

			Consistently(readActions, 100*time.Millisecond, 20*time.Millisecond).Should(BeEmpty())
		})
	})

	Describe("usage recording", func() {
		It("persists foreground sessions across listener restarts", func() {
			now := time.Now()
			runListener(fixtures.NewEventScript().
				WindowState(notesApp, now.Add(-10*time.Minute)).
				WindowState(socialApp, now.Add(-5*time.Minute)))

			usageDB, err := infra.NewEncryptedUsageLog(tmpDir, key)
			Expect(err).NotTo(HaveOccurred())
			defer usageDB.Close()

			times, err := usageDB.ForegroundTimes(context.Background(), domain.TodayWindow(time.Now()))
			Expect(err).NotTo(HaveOccurred())
			Expect(times[notesApp]).To(Equal(5 * time.Minute))
			Expect(times[socialApp]).To(BeNumerically(">", 0))
		})
	})
})
