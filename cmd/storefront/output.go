package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/dronestore/storefront/internal/application/cartsync"
	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/dronestore/storefront/internal/domain/shared/valueobject"
)

var (
	colorAccent  = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorMuted   = lipgloss.Color("#5C7A84")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	infoStyle    = lipgloss.NewStyle().Foreground(colorAccent)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

type noticePrinter struct {
	out io.Writer
}

func newNoticePrinter(out io.Writer) *noticePrinter {
	return &noticePrinter{out: out}
}

// Notify implements cartsync.Notifier
func (p *noticePrinter) Notify(_ context.Context, n cartsync.Notice) {
	if n.Level == cartsync.NoticeWarning {
		fmt.Fprintln(p.out, warningStyle.Render("! "+n.Message))
		return
	}
	fmt.Fprintln(p.out, infoStyle.Render("* "+n.Message))
}

// cartView is the --json shape of a cart
type cartView struct {
	Identity  string      `json:"identity"`
	Route     string      `json:"route"`
	Items     []cart.Item `json:"items"`
	Total     string      `json:"total"`
	ItemCount int         `json:"itemCount"`
}

func newCartView(snap cartsync.Snapshot) cartView {
	items := snap.Items
	if items == nil {
		items = []cart.Item{}
	}
	return cartView{
		Identity:  snap.Identity.String(),
		Route:     string(snap.Route),
		Items:     items,
		Total:     snap.Total().String(),
		ItemCount: snap.ItemCount(),
	}
}

func printCartJSON(out io.Writer, snap cartsync.Snapshot) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(newCartView(snap))
}

func printCart(out io.Writer, snap cartsync.Snapshot) {
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Cart (%s, %s)", snap.Identity, snap.Route)))
	if len(snap.Items) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  empty"))
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tUNIT\tSUBTOTAL\tSTOCK")
	for _, item := range snap.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			item.ID, item.Name, item.Quantity,
			money(item.UnitPrice), money(item.Subtotal()), stockLabel(item.Stock))
	}
	_ = tw.Flush()

	fmt.Fprintf(out, "Total: %s (%d items)\n", money(snap.Total()), snap.ItemCount())
}

func printProducts(out io.Writer, products []cart.Product) {
	if len(products) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no products"))
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, money(p.UnitPrice), stockLabel(p.Stock))
	}
	_ = tw.Flush()
}

func money(d decimal.Decimal) string {
	return valueobject.NewMoneyUSD(d).Display()
}

func stockLabel(stock *int) string {
	if stock == nil {
		return "-"
	}
	if *stock == 0 {
		return "sold out"
	}
	return fmt.Sprintf("%d", *stock)
}
