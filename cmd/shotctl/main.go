// Command shotctl - терминальный клиент сервера shotbox.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/maynagashev/shotbox/internal/client"
	"github.com/maynagashev/shotbox/internal/logging"
)

const (
	serverEnvVar     = "SHOTBOX_SERVER"
	defaultServerURL = "http://localhost:5000"
	defaultLogFile   = "logs/shotctl.log"
)

// Переменные для версии и даты сборки, устанавливаются через ldflags.
var (
	//nolint:gochecknoglobals // Устанавливается через ldflags при сборке
	version = "dev"
	//nolint:gochecknoglobals // Устанавливается через ldflags при сборке
	buildDate = "unknown"
	//nolint:gochecknoglobals // Устанавливается через ldflags при сборке
	commitHash = "N/A"
)

var errUsage = errors.New("invalid usage")

// env содержит то, что команде нужно от процесса.
type env struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)
	// newClient создает клиент API, когда URL сервера известен.
	newClient func(serverURL string) client.Client
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	e := env{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		lookupEnv: os.LookupEnv,
		newClient: func(serverURL string) client.Client { return client.NewHTTPClient(serverURL) },
	}
	err := run(ctx, os.Args[1:], e)
	stop()
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "shotctl:", err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		return 2
	}
	return 1
}

func run(ctx context.Context, args []string, e env) error {
	fs := flag.NewFlagSet("shotctl", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	serverURL := fs.String("server", "", "URL сервера shotbox (переопределяет "+serverEnvVar+", по умолчанию "+defaultServerURL+")")
	logFile := fs.String("log-file", defaultLogFile, "Путь к лог-файлу")
	logLevel := fs.String("log-level", "info", "Уровень логирования")
	fs.Usage = func() { usage(e.stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		usage(e.stderr, fs)
		return fmt.Errorf("%w: command required", errUsage)
	}

	closer, err := logging.Setup(logging.Options{Level: *logLevel, File: *logFile, Quiet: true})
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	url := *serverURL
	if url == "" {
		if v, ok := e.lookupEnv(serverEnvVar); ok && v != "" {
			url = v
		} else {
			url = defaultServerURL
		}
	}

	name, rest := fs.Arg(0), fs.Args()[1:]
	log.WithFields(log.Fields{"command": name, "server": url}).Debug("[shotctl] Выполнение команды")

	switch name {
	case "upload":
		return runUpload(ctx, rest, e, e.newClient(url))
	case "list":
		return runList(ctx, rest, e, e.newClient(url))
	case "browse":
		return runBrowse(ctx, rest, e, e.newClient(url))
	case "hash-password":
		return runHashPassword(rest, e)
	case "version":
		fmt.Fprintf(e.stdout, "shotctl %s\nBuild date: %s\nCommit: %s\n", version, buildDate, commitHash)
		return nil
	default:
		usage(e.stderr, fs)
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: shotctl [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  upload <file>...     загрузить скриншоты")
	fmt.Fprintln(w, "  list [flags]         вывести страницу листинга")
	fmt.Fprintln(w, "  browse [flags]       интерактивный браузер")
	fmt.Fprintln(w, "  hash-password        прочитать пароль из stdin и вывести bcrypt-хеш")
	fmt.Fprintln(w, "  version              показать версию и дату сборки")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}
