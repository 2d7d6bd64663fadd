package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/chosung/apps/go-server/assets"
	"github.com/robalobadob/chosung/apps/go-server/internal/config"
	"github.com/robalobadob/chosung/apps/go-server/internal/dict"
	"github.com/robalobadob/chosung/apps/go-server/internal/game"
	"github.com/robalobadob/chosung/apps/go-server/internal/history"
	"github.com/robalobadob/chosung/apps/go-server/internal/httpserver"
	"github.com/robalobadob/chosung/apps/go-server/internal/store"
)

func main() {
	mintTTL := flag.Duration("mint-operator-token", 0, "print an operator token valid for the given duration and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg)

	if *mintTTL > 0 {
		if cfg.OperatorSecret == "" {
			log.Fatal().Msg("OPERATOR_JWT_SECRET is not set")
		}
		tok, err := httpserver.SignOperatorToken(cfg.OperatorSecret, "cli", *mintTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("sign operator token")
		}
		fmt.Println(tok)
		return
	}

	db, err := history.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := history.Migrate(db, assets.Migrations); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	validator, err := newValidator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("dictionary")
	}

	hub := httpserver.NewHub()
	hist := history.NewStore(db)
	recorder := history.NewRecorder(hist)
	gameCfg := cfg.GameConfig()
	emitter := game.Fanout{hub, recorder}

	rooms := store.NewRegistry(func(code string) *game.Session {
		return game.NewSession(code, gameCfg, game.Options{Emitter: emitter, Validator: validator})
	})

	srv := httpserver.New(httpserver.Options{
		Rooms:          rooms,
		Hub:            hub,
		History:        hist,
		ClientOrigin:   cfg.ClientOrigin,
		OperatorSecret: cfg.OperatorSecret,
		SubmitRate:     cfg.Transport.SubmitRate,
		SubmitBurst:    cfg.Transport.SubmitBurst,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("port", cfg.Port).Int("maxRounds", gameCfg.MaxRounds).Msg("starting chosung server")
	if err := srv.Start(ctx, ":"+cfg.Port); err != nil {
		log.Error().Err(err).Msg("server exited")
	}
	rooms.Close()
	recorder.Wait()
	closeDB(db)
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// newValidator picks, in order: DICT_WORDS_FILE, the remote dictionary when a
// key is set, then the bundled starter list.
func newValidator(cfg config.Config) (game.Validator, error) {
	if cfg.Dict.WordsFile != "" {
		list, err := dict.LoadFile(cfg.Dict.WordsFile)
		if err != nil {
			return nil, err
		}
		log.Info().Str("file", cfg.Dict.WordsFile).Int("words", list.Len()).Msg("using offline word list")
		return list, nil
	}
	if cfg.Dict.Key != "" {
		return dict.NewClient(cfg.Dict.BaseURL, cfg.Dict.Key, cfg.Dict.Timeout), nil
	}
	f, err := assets.WordList()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	list, err := dict.Load(f)
	if err != nil {
		return nil, err
	}
	log.Warn().Int("words", list.Len()).Msg("STD_KO_DICT_KEY is not set; using the bundled starter word list")
	return list, nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("close database")
	}
}
