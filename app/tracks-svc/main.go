package main

import (
	"context"
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/octalwise/tracks/app/tracks-svc/tracker"
	"github.com/octalwise/tracks/business/data/rail"
	"github.com/octalwise/tracks/foundation/database"
	"github.com/octalwise/tracks/foundation/httpclient"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "TRACKS : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	//a missing .env file is fine, settings come from the environment or arguments
	_ = godotenv.Load()

	var cfg struct {
		conf.Version
		Args conf.Args
		Web  struct {
			Port                int      `conf:"default:8080"`
			ReadTimeoutSeconds  int      `conf:"default:10"`
			WriteTimeoutSeconds int      `conf:"default:10"`
			AllowedOrigins      []string `conf:"default:*"`
		}
		Feed struct {
			TimetableUrl string `conf:"default:https://www.caltrain.com/?active_tab=route_explorer_tab"`
			// empty HolidayUrl, LiveUrl or AlertsUrl disable that document
			HolidayUrl   string
			LiveUrl      string
			AlertsUrl    string
			AuthToken    string `conf:"noprint"`
			StationsFile string `conf:"default:app/tracks-svc/stations.yaml"`
			TimeZone     string `conf:"default:America/Los_Angeles"`
			BoundaryHour int    `conf:"default:3"`
		}
		Refresh struct {
			TrainsEverySeconds    int `conf:"default:90"`
			AlertsEverySeconds    int `conf:"default:180"`
			TimetableEverySeconds int `conf:"default:86400"`
			MaxRetries            int `conf:"default:3"`
			RequestTimeoutSeconds int `conf:"default:30"`
		}
		DB struct {
			User         string `conf:"default:postgres"`
			Password     string `conf:"default:postgres,noprint"`
			Host         string `conf:"default:0.0.0.0"`
			Name         string `conf:"default:postgres"`
			DisableTLS   bool   `conf:"default:true"`
			MaxOpenConns int    `conf:"default:2"`
			Record       bool   `conf:"default:false"`
		}
		Nats struct {
			Url     string `conf:"default:nats://localhost:4222"`
			Subject string `conf:"default:tracks.trains"`
			Publish bool   `conf:"default:false"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Publish commuter rail train positions from the timetable and live reports"
	const prefix = "TRACKS"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			printUsage(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Load line reference data

	location, err := time.LoadLocation(cfg.Feed.TimeZone)
	if err != nil {
		return fmt.Errorf("loading time zone %s: %w", cfg.Feed.TimeZone, err)
	}
	registry, err := rail.LoadStationRegistry(cfg.Feed.StationsFile)
	if err != nil {
		return fmt.Errorf("loading stations: %w", err)
	}
	log.Printf("main: loaded %d stations from %s", registry.Len(), cfg.Feed.StationsFile)
	engine := tracker.NewEngine(registry, location, cfg.Feed.BoundaryHour)

	headers := make(map[string]string)
	if cfg.Feed.AuthToken != "" {
		headers["Authorization"] = "Bearer " + cfg.Feed.AuthToken
	}
	client := httpclient.NewClient(time.Duration(cfg.Refresh.RequestTimeoutSeconds)*time.Second, headers)

	// =========================================================================
	// Start Database

	var db *sqlx.DB
	if cfg.DB.Record {
		log.Println("main: Initializing database support")
		db, err = database.Open(database.Config{
			User:         cfg.DB.User,
			Password:     cfg.DB.Password,
			Host:         cfg.DB.Host,
			Name:         cfg.DB.Name,
			DisableTLS:   cfg.DB.DisableTLS,
			MaxOpenConns: cfg.DB.MaxOpenConns,
		})
		if err != nil {
			return fmt.Errorf("connecting to db: %w", err)
		}
		defer func() {
			log.Printf("main: Database Stopping : %s", cfg.DB.Host)
			err = db.Close()
			if err != nil {
				log.Printf("main: error closing database: %v", err)
			}
		}()
		if err = database.StatusCheck(context.Background(), db); err != nil {
			return fmt.Errorf("checking db status: %w", err)
		}
	}

	// =========================================================================
	// Start NATS

	var natsConn *nats.Conn
	if cfg.Nats.Publish {
		log.Printf("main: Connecting to NATS at %s", cfg.Nats.Url)
		natsConn, err = nats.Connect(cfg.Nats.Url,
			nats.Name("tracks-svc"),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Printf("main: NATS disconnected: %v", err)
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Printf("main: NATS reconnected to %s", nc.ConnectedUrl())
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer natsConn.Close()
	}

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	tracker.StartServices(log, tracker.ServiceConfig{
		Web: tracker.WebConfig{
			Port:                cfg.Web.Port,
			ReadTimeoutSeconds:  cfg.Web.ReadTimeoutSeconds,
			WriteTimeoutSeconds: cfg.Web.WriteTimeoutSeconds,
			AllowedOrigins:      cfg.Web.AllowedOrigins,
		},
		Feed: tracker.FeedConfig{
			TimetableUrl: cfg.Feed.TimetableUrl,
			HolidayUrl:   cfg.Feed.HolidayUrl,
			LiveUrl:      cfg.Feed.LiveUrl,
			AlertsUrl:    cfg.Feed.AlertsUrl,
		},
		Refresh: tracker.RefreshConfig{
			TrainsEverySeconds:    cfg.Refresh.TrainsEverySeconds,
			AlertsEverySeconds:    cfg.Refresh.AlertsEverySeconds,
			TimetableEverySeconds: cfg.Refresh.TimetableEverySeconds,
			MaxRetries:            cfg.Refresh.MaxRetries,
			RequestTimeoutSeconds: cfg.Refresh.RequestTimeoutSeconds,
		},
		NatsSubject: cfg.Nats.Subject,
	}, engine, client, db, natsConn, shutdown)

	return nil
}

func printUsage(confUsage string) {
	fmt.Println(confUsage)
}
