// Package cli is the smartlife command tree.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"smartlife/client/internal/config"
	"smartlife/client/internal/httpclient"
	"smartlife/client/internal/repository"
	"smartlife/client/internal/service"
	"smartlife/client/internal/session"
	"smartlife/client/internal/storage"
)

// app holds the services shared by every command. It is built once the
// flags are parsed and closed after the command returns.
type app struct {
	apiURL string
	dbPath string

	cfg     config.Config
	logger  *log.Logger
	db      *storage.SQLite
	storage *storage.Notifier

	sessions *session.Store
	auth     *service.AuthService
	profiles *service.ProfileService
	tasks    *service.TaskService
	pomodoro *service.PomodoroService
	notes    *service.NoteService
	prefs    *service.PreferenceService

	input *bufio.Reader
}

func (a *app) open(cmd *cobra.Command) error {
	cfg := config.Load()
	if cmd.Flags().Changed("api-url") {
		cfg.APIBaseURL = config.NormalizeBaseURL(a.apiURL)
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = a.dbPath
	}
	a.cfg = cfg
	a.logger = log.New(cmd.ErrOrStderr(), "smartlife: ", 0)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	a.db = db
	if _, err := storage.EnsureFormatVersion(cmd.Context(), db, storage.FormatVersion); err != nil {
		_ = db.Close()
		return err
	}
	a.storage = storage.NewNotifier(db)

	a.sessions = session.NewStore(a.storage, a.logger)
	client := httpclient.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout}, a.sessions, a.logger)

	a.profiles = service.NewProfileService(client, a.sessions, repository.NewProfileRepository(a.storage, a.logger), a.logger)
	a.auth = service.NewAuthService(client, a.sessions, repository.NewUserRepository(a.storage, a.logger), a.profiles, a.logger)
	a.tasks = service.NewTaskService(
		repository.NewRemoteTaskRepository(client),
		repository.NewLocalTaskRepository(a.storage, a.sessions, a.logger),
		a.sessions,
		a.logger,
	)
	a.pomodoro = service.NewPomodoroService(
		repository.NewPomodoroRepository(a.storage, a.sessions, a.logger),
		cfg.PomodoroModes(),
		a.logger,
	)
	a.notes = service.NewNoteService(repository.NewNoteRepository(a.storage, a.logger))
	a.prefs = service.NewPreferenceService(a.storage, cfg.PollInterval, a.logger)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// confirm asks a yes/no question on the command's input.
func (a *app) confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	answer, err := a.readLine(cmd)
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

func (a *app) readLine(cmd *cobra.Command) (string, error) {
	if a.input == nil {
		a.input = bufio.NewReader(cmd.InOrStdin())
	}
	line, err := a.input.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
