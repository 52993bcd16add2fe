package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Wa4h1h/go-tftpd/pkg/client"
	"github.com/Wa4h1h/go-tftpd/pkg/utils"
	"github.com/akamensky/argparse"
)

var (
	serverAddr = utils.GetEnv[string]("TFTP_SERVER", "127.0.0.1:69", false)
	logLevel   = utils.GetEnv[string]("TFTP_LOG_LEVEL", "info", false)
	numTries   = utils.GetEnv[int]("TFTP_NUM_TRIES", "5", false)
	timeout    = utils.GetEnv[int]("TFTP_TIMEOUT", "5", false)
)

func main() {
	args := argparse.NewParser("tftp", "TFTP client")

	addr := args.String("s", "server", &argparse.Options{Help: "Server host:port", Default: serverAddr})
	level := args.String("v", "log-level", &argparse.Options{Help: "Log level", Default: logLevel})
	tries := args.Int("n", "retries", &argparse.Options{Help: "Retransmissions before giving up", Default: numTries})
	wait := args.Int("t", "timeout", &argparse.Options{Help: "Seconds to wait for the server", Default: timeout})
	dir := args.String("d", "dir", &argparse.Options{Help: "Local directory", Default: "."})
	trace := args.Flag("x", "trace", &argparse.Options{Help: "Log every block"})

	get := args.NewCommand("get", "Download a file")
	getFile := get.String("f", "file", &argparse.Options{Required: true, Help: "Remote file name"})

	put := args.NewCommand("put", "Upload a file")
	putFile := put.String("f", "file", &argparse.Options{Required: true, Help: "Local file name"})

	shell := args.NewCommand("shell", "Interactive prompt")

	if err := args.Parse(os.Args); err != nil {
		fmt.Print(args.Usage(err))
		os.Exit(1)
	}

	logger, err := utils.NewLogger(*level, "")
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	l := logger.Sugar()

	c := client.NewClient(l, uint(*tries))
	c.SetTimeoutDuration(time.Duration(*wait) * time.Second)
	c.SetDir(*dir)

	if *trace {
		c.SetTrace()
	}

	if err := c.Connect(*addr); err != nil {
		l.Fatal(err.Error())
	}

	defer func(client client.Connector) {
		if err := client.Close(); err != nil {
			l.Error(err.Error())
		}
	}(c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case get.Happened():
		err = c.Get(ctx, *getFile)
	case put.Happened():
		err = c.Put(ctx, *putFile)
	case shell.Happened():
		err = client.NewCli(l, c, os.Stdin, os.Stdout).Read(ctx)
	}

	if err != nil {
		l.Error(err.Error())
		os.Exit(1)
	}
}
