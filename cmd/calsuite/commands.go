package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"calsuite/internal/bootstrap"
	"calsuite/internal/config"
	"calsuite/internal/date"
	"calsuite/internal/export"
	"calsuite/internal/ics"
	appLog "calsuite/internal/log"
	"calsuite/internal/model"
	"calsuite/internal/scheduler"
	"calsuite/internal/suite"
	"calsuite/internal/web"
)

func newServeCommand(flags *rootFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the export and refresh jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, s, err := load(flags)
			if err != nil {
				return err
			}
			// --listen overrides the config file if provided.
			if listen != "" {
				conf.Listen = listen
			}
			return serve(conf, s)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func serve(conf *config.Config, s *suite.Suite) error {
	appLog.Info("calsuite starting", "version", version)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	exp := export.New(s, conf.Export.Dir)
	subs := bootstrap.Sources(conf)
	fetcher := ics.NewFetcher(conf.CacheDir)

	refresh := func(ctx context.Context) error {
		_, err := bootstrap.Refresh(ctx, s, fetcher, subs, conf.HorizonDays, time.Now())
		return err
	}
	runExport := func(context.Context) error {
		_, err := exp.Run()
		return err
	}

	sched := scheduler.New(nil)
	if len(subs) > 0 {
		if err := sched.Add("refresh", conf.RefreshCron, refresh); err != nil {
			return err
		}
		if err := refresh(ctx); err != nil {
			appLog.Error("initial refresh incomplete", err)
		}
	}
	if conf.Export.Dir != "" {
		if err := sched.Add("export", conf.Export.Cron, runExport); err != nil {
			return err
		}
		if err := runExport(ctx); err != nil {
			appLog.Error("initial export incomplete", err)
		}
	}

	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()

	err := web.StartServer(ctx, conf, s, exp)
	cancel()
	<-done
	appLog.Info("calsuite exiting")
	return err
}

func newExportCommand(flags *rootFlags) *cobra.Command {
	var (
		dir     string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every calendar as an ICS file once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, s, err := load(flags)
			if err != nil {
				return err
			}
			if dir != "" {
				conf.Export.Dir = dir
			}
			if refresh {
				if _, err := bootstrap.Refresh(cmd.Context(), s, ics.NewFetcher(conf.CacheDir), bootstrap.Sources(conf), conf.HorizonDays, time.Now()); err != nil {
					appLog.Error("refresh incomplete", err)
				}
			}

			paths, err := export.New(s, conf.Export.Dir).Run()
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (overrides config if set)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Import ICS subscriptions before exporting")
	return cmd
}

func newAgendaCommand(flags *rootFlags) *cobra.Command {
	var (
		calendarName string
		day          string
		from         string
		limit        int
		refresh      bool
	)

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Print the events of one day, or the next events from a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, s, err := load(flags)
			if err != nil {
				return err
			}
			if calendarName != "" {
				if err := s.UseCalendar(calendarName); err != nil {
					return err
				}
			}
			if refresh {
				if _, err := bootstrap.Refresh(cmd.Context(), s, ics.NewFetcher(conf.CacheDir), bootstrap.Sources(conf), conf.HorizonDays, time.Now()); err != nil {
					appLog.Error("refresh incomplete", err)
				}
			}

			cal, err := s.Active()
			if err != nil {
				return err
			}

			var occs []model.Occurrence
			if day != "" {
				if occs, err = cal.EventsOn(day); err != nil {
					return err
				}
			} else {
				start := date.FromTime(time.Now())
				if from != "" {
					if start, err = date.ParseDate(from); err != nil {
						return err
					}
				}
				occs = cal.Upcoming(start, limit)
			}
			printAgenda(cmd.OutOrStdout(), occs)
			return nil
		},
	}
	cmd.Flags().StringVar(&calendarName, "calendar", "", "Calendar to read (defaults to the active one)")
	cmd.Flags().StringVar(&day, "date", "", "Print every event on this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&from, "from", "", "Print the next events starting on or after this date (defaults to today)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of upcoming events; 0 prints all")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Import ICS subscriptions first")
	return cmd
}

func printAgenda(w io.Writer, occs []model.Occurrence) {
	if len(occs) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	for _, o := range occs {
		line := fmt.Sprintf("%s  %s  %s", o.Start, o.End.Clock, o.Subject)
		if o.AllDay {
			line = fmt.Sprintf("%s  all day  %s", o.Start.Date, o.Subject)
		}
		if o.Location != "" {
			line += " @ " + o.Location
		}
		if o.Status == model.Private {
			line += " (private)"
		}
		fmt.Fprintln(w, line)
	}
}
