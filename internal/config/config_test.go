package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appLog "timedesk/internal/log"
	"timedesk/internal/timeline"
)

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("writes defaults on first run", func() {
		path := filepath.Join(dir, "nested", "config.yaml")
		cfg, err := Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(DefaultConfig()))

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

		again, err := Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(Equal(cfg))
	})

	It("fills in what a partial file leaves out", func() {
		path := filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(path, []byte(`
listen: ":9090"
events_file: ./letters.yaml
clock_mode: bogus
layout:
  zoom: 3
viewport:
  narrow_width: 600
`), 0o600)).To(Succeed())

		cfg, err := Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Listen).To(Equal(":9090"))
		Expect(cfg.EventsFile).To(Equal("./letters.yaml"))
		Expect(cfg.ClockMode).To(Equal(ClockReal))
		Expect(cfg.Layout.Zoom).To(Equal(3.0))
		Expect(cfg.Layout.PixelsPerMinute).To(Equal(10.0))
		Expect(cfg.Layout.MaxRotation).To(Equal(7.0))
		Expect(cfg.Layout.CalmIDs).To(Equal([]string{"1a"}))
		Expect(cfg.WatchEventsFile).To(BeTrue())
		Expect(cfg.Layout.Cutoff).To(Equal("03:45"))
		Expect(cfg.Viewport.NarrowWidth).To(Equal(600.0))
		Expect(cfg.Viewport.ContainerHeight).To(Equal(900.0))
		Expect(cfg.RefreshCron).To(Equal("*/15 * * * *"))
		Expect(cfg.Log.Level).To(Equal("info"))
	})

	It("rejects malformed YAML", func() {
		path := filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(path, []byte("listen: [unterminated"), 0o600)).To(Succeed())
		_, err := Load(path)
		Expect(err).To(HaveOccurred())
	})

	It("refuses an empty path", func() {
		_, err := Load("")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Save", func() {
	It("round-trips through Load and leaves no temp files", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.yaml")
		cfg := DefaultConfig()
		cfg.BaseYear = 2024
		cfg.EventsURL = "https://example.com/letters.ics"
		cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
		Expect(cfg.Save(path)).To(Succeed())

		loaded, err := Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(cfg))

		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("refuses a nil config", func() {
		Expect(Save(filepath.Join(GinkgoT().TempDir(), "c.yaml"), nil)).NotTo(Succeed())
	})
})

var _ = Describe("Validate", func() {
	It("accepts the defaults", func() {
		Expect(DefaultConfig().Validate()).To(Succeed())
	})

	DescribeTable("rejects",
		func(mutate func(*Config), fragment string) {
			cfg := DefaultConfig()
			mutate(cfg)
			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(fragment))
		},
		Entry("an unknown zone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"),
		Entry("a bad cutoff", func(c *Config) { c.Layout.Cutoff = "25:99" }, "cutoff"),
		Entry("a bad refresh schedule", func(c *Config) { c.RefreshCron = "every tuesday" }, "refresh"),
		Entry("a bad clock tick", func(c *Config) { c.ClockTick = "@sometimes" }, "clock_tick"),
		Entry("no event source", func(c *Config) { c.EventsFile = "" }, "events_file"),
	)
})

var _ = Describe("Session", func() {
	It("maps every section onto the session configuration", func() {
		cfg := DefaultConfig()
		cfg.Timezone = "UTC"
		cfg.BaseYear = 2024
		cfg.ClockMode = ClockSeason
		cfg.Layout.Cutoff = "04:00"
		cfg.Viewport.Width = 500
		cfg.Inspection.ColumnWidth = 280

		sc, err := cfg.Session()
		Expect(err).NotTo(HaveOccurred())
		Expect(sc.Location).To(Equal(time.UTC))
		Expect(sc.BaseYear).To(Equal(2024))
		Expect(sc.SeasonClock).To(BeTrue())
		Expect(sc.Cutoff).To(Equal(timeline.Cutoff{Hour: 4, Minute: 0}))
		Expect(sc.Layout).To(Equal(timeline.DefaultParams()))
		Expect(sc.Scale.PixelsPerMinute).To(Equal(10.0))
		Expect(sc.Scale.Zoom).To(Equal(2.5))
		Expect(sc.Scale.NarrowWidth).To(Equal(768.0))
		Expect(sc.Viewport.Width).To(Equal(500.0))
		Expect(sc.Inspection.ColumnWidth).To(Equal(280.0))
	})

	It("resolves Local to the host zone", func() {
		loc, err := DefaultConfig().Location()
		Expect(err).NotTo(HaveOccurred())
		Expect(loc).To(Equal(time.Local))
	})

	It("maps the log section", func() {
		cfg := DefaultConfig()
		cfg.Log.Level = "debug"
		cfg.Log.File = "/tmp/timedesk.log"
		Expect(cfg.LogOptions()).To(Equal(appLog.Options{
			Level: appLog.LevelDebug, File: "/tmp/timedesk.log", MaxSizeMB: 10, MaxBackups: 3,
		}))
	})
})
