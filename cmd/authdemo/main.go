// Command authdemo exercises the session lifecycle against a running CRM
// auth API: login, profile fetch, guarded navigation, token refresh, logout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pipelinecrm/go-auth-client/guard"
	"github.com/pipelinecrm/go-auth-client/internal/config"
	"github.com/pipelinecrm/go-auth-client/session"
	"github.com/pipelinecrm/go-auth-client/tokenstore"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	email := flag.String("email", "", "login email")
	password := flag.String("password", "", "login password")
	flag.Parse()

	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	displayAppname(cfg.AppName)
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	store, err := buildStore(cfg, log)
	if err != nil {
		return err
	}

	service, err := session.NewService(cfg.APIBaseURL, store, session.WithLogger(log))
	if err != nil {
		return err
	}

	routeGuard, err := guard.New(service, store,
		guard.WithLoginPath(cfg.LoginPath),
		guard.WithLandingPath(cfg.LandingPath),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	decision := routeGuard.Evaluate(cfg.LandingPath)
	log.Info().Stringer("state", decision.State).Str("path", cfg.LandingPath).Msg("pre-login navigation")

	sess, err := service.Login(ctx, session.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	log.Info().Str("email", sess.User.Email).Str("role", string(sess.User.Role)).Msg("logged in")

	if expiry, ok := service.TokenExpiry(); ok {
		log.Info().Time("expires_at", expiry).Msg("access token expiry")
	}

	decision = routeGuard.Evaluate(cfg.LandingPath)
	log.Info().Stringer("state", decision.State).Str("path", cfg.LandingPath).Msg("post-login navigation")

	// An API client carrying the refresh-on-401 policy.
	client := &http.Client{Transport: session.NewTransport(service, nil)}
	if resp, err := client.Get(cfg.APIBaseURL + "/auth/me"); err == nil {
		resp.Body.Close()
		log.Info().Int("status", resp.StatusCode).Msg("authenticated request through refresh transport")
	}

	profile, err := service.GetProfile(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("name", profile.FirstName+" "+profile.LastName).Msg("profile refreshed")

	accessToken, err := service.RefreshToken(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("token_length", len(accessToken)).Msg("token pair rotated")

	service.Logout(ctx)
	log.Info().Bool("authenticated", service.IsAuthenticated()).Msg("logged out")

	return nil
}

func buildStore(cfg config.Config, log zerolog.Logger) (tokenstore.Store, error) {
	if cfg.TokenFile == "" {
		return tokenstore.NewMemoryStore(), nil
	}
	return tokenstore.NewFileStore(cfg.TokenFile, []byte(cfg.TokenFilePassphrase),
		tokenstore.WithFileLogger(log))
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
