// Command submit publishes one SubmittedContent envelope onto the classify
// queue. There is no HTTP submission gateway in this system; this CLI
// exercises the one publish contract such a gateway would front, for local
// smoke-testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/contentpipe/internal/broker"
	"github.com/baechuer/contentpipe/internal/config"
	"github.com/baechuer/contentpipe/internal/model"
)

func main() {
	content := flag.String("content", "", "text or URL to submit")
	flag.Parse()

	if *content == "" {
		fmt.Fprintln(os.Stderr, "usage: submit -content <text-or-url>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "submit: config:", err)
		os.Exit(1)
	}

	lg := zerolog.New(os.Stderr).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sess, err := broker.Connect(ctx, cfg.BrokerURL, cfg.Exchange, lg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "submit: connect:", err)
		os.Exit(1)
	}
	defer sess.Close()

	if err := sess.DeclareAndBind(cfg.ClassifyQueue); err != nil {
		fmt.Fprintln(os.Stderr, "submit: declare:", err)
		os.Exit(1)
	}

	msg := model.SubmittedContent{Content: *content}
	if err := sess.PublishJSON(ctx, cfg.ClassifyQueue, msg, nil); err != nil {
		fmt.Fprintln(os.Stderr, "submit: publish:", err)
		os.Exit(1)
	}

	fmt.Println("submitted")
}
