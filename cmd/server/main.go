package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/Wa4h1h/go-tftpd/pkg/server"
	"github.com/Wa4h1h/go-tftpd/pkg/storage"
	"github.com/Wa4h1h/go-tftpd/pkg/utils"
	"github.com/akamensky/argparse"
	"go.uber.org/zap"
)

const seedFile = "test.txt"

var (
	tftpPort    = utils.GetEnv[int]("TFTP_PORT", "69", false)
	listenAddr  = utils.GetEnv[string]("TFTP_LISTEN_ADDR", "", false)
	logLevel    = utils.GetEnv[string]("TFTP_LOG_LEVEL", "info", false)
	logFile     = utils.GetEnv[string]("TFTP_LOG_FILE", "logs/tftp_server.log", false)
	timeout     = utils.GetEnv[int]("TFTP_TIMEOUT", "5", false)
	maxRetries  = utils.GetEnv[int]("TFTP_MAX_RETRIES", "5", false)
	tos         = utils.GetEnv[int]("TFTP_TOS", "0", false)
	trace       = utils.GetEnv[bool]("TFTP_TRACE", "false", false)
	seed        = utils.GetEnv[bool]("TFTP_SEED_FILE", "true", false)
	tftpBaseDir = os.Getenv("TFTP_BASE_DIR")
)

func main() {
	args := argparse.NewParser("tftpd", "TFTP server over UDP")

	port := args.Int("p", "port", &argparse.Options{Help: "Listening port", Default: tftpPort})
	bind := args.String("l", "listen", &argparse.Options{Help: "Listen on address", Default: listenAddr})
	root := args.String("r", "root", &argparse.Options{Help: "Root directory served (default ~/tftp)", Default: tftpBaseDir})
	level := args.String("v", "log-level", &argparse.Options{Help: "Log level", Default: logLevel})
	logPath := args.String("o", "log-file", &argparse.Options{Help: "Append log lines to this file", Default: logFile})
	wait := args.Int("t", "timeout", &argparse.Options{Help: "Seconds to wait for the peer", Default: timeout})
	retries := args.Int("n", "retries", &argparse.Options{Help: "Retransmissions before a transfer is abandoned", Default: maxRetries})
	mark := args.Int("q", "tos", &argparse.Options{Help: "IP TOS byte for transfer sockets", Default: tos})
	traceBlocks := args.Flag("x", "trace", &argparse.Options{Help: "Log every block", Default: trace})

	if err := args.Parse(os.Args); err != nil {
		fmt.Print(args.Usage(err))
		os.Exit(1)
	}

	logger, err := utils.NewLogger(*level, *logPath)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	l := logger.Sugar()

	defer func() {
		_ = l.Sync()
	}()

	if *root == "" {
		*root = utils.UserHomeDirPath()
	} else if err := utils.EnsureDir(*root); err != nil {
		l.Fatal(err.Error())
	}

	files, err := storage.OpenDir(*root)
	if err != nil {
		l.Fatal(err.Error())
	}

	defer func() {
		if err := files.Close(); err != nil {
			l.Error(err.Error())
		}
	}()

	if seed {
		seedRoot(l, files)
	}

	cfg, err := buildConfig(*bind, *port, *wait, *retries, *mark, *traceBlocks)
	if err != nil {
		l.Fatal(err.Error())
	}

	s := server.NewServer(l, files, cfg)

	if err := s.Listen(); err != nil {
		l.Fatal(err.Error())
	}

	l.Infof("listening on %s, file root: %s, log file: %s, max retries: %d, timeout: %s",
		s.Addr(), *root, *logPath, cfg.MaxRetries, cfg.Timeout)

	go func() {
		if err := s.Serve(); err != nil {
			l.Error(err.Error())
		}
	}()

	defer func() {
		if err := s.Close(); err != nil {
			l.Error(err.Error())
		}

		l.Infof("closed connection on %s", s.Addr())
	}()

	// listen shutdown signal
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-signalChan
}

func seedRoot(l *zap.SugaredLogger, files *storage.Dir) {
	f, err := files.Create(seedFile)
	if err != nil {
		if !errors.Is(err, fs.ErrExist) {
			l.Warnf("error while creating %s: %s", seedFile, err.Error())
		}

		return
	}

	_, err = fmt.Fprint(f, "Hello, this is a test file for the tftp server!\nYou can download it with any tftp client.\n")
	if errC := f.Close(); err == nil {
		err = errC
	}

	if err != nil {
		l.Warnf("error while writing %s: %s", seedFile, err.Error())

		return
	}

	l.Infof("created test file %s", seedFile)
}
