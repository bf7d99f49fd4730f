package activity

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/skycart/internal/readmodel"
)

// Printer writes one line per event to out, plus a receipt for every placed
// order.
type Printer struct {
	out    io.Writer
	logger logrus.FieldLogger
}

func NewPrinter(out io.Writer, logger logrus.FieldLogger) *Printer {
	return &Printer{out: out, logger: logger.WithField("component", "ActivityPrinter")}
}

func (p *Printer) Handle(ctx context.Context, event Event) error {
	actor := event.Actor
	if actor == "" {
		actor = "-"
	}
	if _, err := fmt.Fprintf(p.out, "%s  %-22s %-24s %s\n", event.At.Local().Format(time.DateTime), event.Type, event.Subject, actor); err != nil {
		return err
	}

	if event.Type != OrderPlaced {
		return nil
	}
	var o readmodel.Order
	if err := event.Decode(&o); err != nil {
		p.logger.WithError(err).WithField("event_id", event.ID).Warn("failed to decode placed order")
		return err
	}
	_, err := io.WriteString(p.out, Receipt(o))
	return err
}
