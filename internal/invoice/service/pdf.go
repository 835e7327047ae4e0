package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/railzwaylabs/waterline/internal/invoice/domain"
	"go.uber.org/zap"
)

const dateLayout = "02 Jan 2006"

func (s *Service) RenderPDF(ctx context.Context, id snowflake.ID) ([]byte, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := renderInvoice(detail).Generate()
	if err != nil {
		s.log.Error("failed to render invoice pdf", zap.Error(err), zap.String("invoice_id", id.String()))
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return doc.GetBytes(), nil
}

func renderInvoice(detail *domain.Detail) core.Maroto {
	cfg := config.NewBuilder().
		WithLeftMargin(12).
		WithTopMargin(15).
		WithRightMargin(12).
		Build()
	m := maroto.New(cfg)

	bold := props.Text{Style: fontstyle.Bold}
	right := props.Text{Align: align.Right}
	boldRight := props.Text{Style: fontstyle.Bold, Align: align.Right}

	m.AddRows(text.NewRow(12, "INVOICE", props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Center}))
	m.AddRow(7, text.NewCol(6, "Number", bold), text.NewCol(6, detail.Number, right))
	m.AddRow(7, text.NewCol(6, "Date", bold), text.NewCol(6, detail.Date.Format(dateLayout), right))
	m.AddRow(7, text.NewCol(6, "Status", bold), text.NewCol(6, string(detail.Status), right))

	if c := detail.Customer; c != nil {
		m.AddRows(text.NewRow(10, "Bill to", props.Text{Top: 3, Style: fontstyle.Bold}))
		m.AddRows(text.NewRow(6, c.Name))
		if c.Address != "" {
			m.AddRows(text.NewRow(6, c.Address))
		}
		if c.PhoneNumber != "" {
			m.AddRows(text.NewRow(6, c.PhoneNumber))
		}
	}

	m.AddRow(10,
		text.NewCol(3, "Date", props.Text{Top: 4, Style: fontstyle.Bold}),
		text.NewCol(2, "Delivered", props.Text{Top: 4, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Empty", props.Text{Top: 4, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Due", props.Text{Top: 4, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(3, "Received", props.Text{Top: 4, Style: fontstyle.Bold, Align: align.Right}),
	)
	for _, e := range detail.Entries {
		m.AddRow(6,
			text.NewCol(3, e.EntryDate.Format(dateLayout)),
			text.NewCol(2, fmt.Sprintf("%d", e.DeliveredBottles), right),
			text.NewCol(2, fmt.Sprintf("%d", e.EmptyBottle), right),
			text.NewCol(2, e.AmountDue.StringFixed(2), right),
			text.NewCol(3, e.AmountReceived.StringFixed(2), right),
		)
	}

	m.AddRow(10, text.NewCol(9, "Total", props.Text{Top: 4, Style: fontstyle.Bold}), text.NewCol(3, detail.Amount.StringFixed(2), props.Text{Top: 4, Style: fontstyle.Bold, Align: align.Right}))
	if c := detail.Customer; c != nil {
		m.AddRow(7, text.NewCol(9, "Current balance", bold), text.NewCol(3, c.Balance.StringFixed(2), boldRight))
	}
	return m
}
