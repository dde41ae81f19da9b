// Package display renders staking snapshots on a terminal.
package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"stakefetcher/internal/stake"
)

// Fields is what the terminal currently shows. The zero value is the
// cleared form.
type Fields struct {
	StakeKey         string
	Epoch            string
	PoolName         string
	PoolTicker       string
	ControlledAmount string
	RewardsSum       string
	RewardsDetails   []string
	Status           string
}

// Terminal implements publisher.View and publisher.FailureView. Every call
// redraws the whole form, so nothing from a previous snapshot survives.
type Terminal struct {
	out    io.Writer
	fields Fields
}

// NewTerminal creates a Terminal writing to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

// Render replaces the form with snap.
func (t *Terminal) Render(snap stake.Snapshot) {
	details := make([]string, 0, len(snap.Rewards))
	for _, r := range snap.Rewards {
		details = append(details, fmt.Sprintf("epoch %d: %s", r.Epoch, stake.FormatADA(r.Amount)))
	}

	t.fields = Fields{
		StakeKey:         snap.Key.String(),
		Epoch:            strconv.FormatUint(snap.Epoch, 10),
		PoolName:         snap.Pool.Name,
		PoolTicker:       snap.Pool.Ticker,
		ControlledAmount: stake.FormatADA(snap.Account.ControlledAmount),
		RewardsSum: fmt.Sprintf("%s (%s%%)",
			stake.FormatADA(snap.Account.RewardsSum),
			snap.RewardsPercent().StringFixed(2)),
		RewardsDetails: details,
	}
	t.draw()
}

// Clear empties every field.
func (t *Terminal) Clear() {
	t.fields = Fields{}
	t.draw()
}

// Failed shows why no information is displayed for key.
func (t *Terminal) Failed(key stake.Key, err error) {
	t.fields = Fields{
		StakeKey: key.String(),
		Status:   "no staking information available",
	}
	t.draw()
}

// Fields returns a copy of what is currently shown.
func (t *Terminal) Fields() Fields {
	f := t.fields
	f.RewardsDetails = append([]string(nil), t.fields.RewardsDetails...)
	return f
}

func (t *Terminal) draw() {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Stake key:\t%s\n", t.fields.StakeKey)
	fmt.Fprintf(w, "Current epoch:\t%s\n", t.fields.Epoch)
	fmt.Fprintf(w, "Pool name:\t%s\n", t.fields.PoolName)
	fmt.Fprintf(w, "Pool ticker:\t%s\n", t.fields.PoolTicker)
	fmt.Fprintf(w, "Controlled amount:\t%s\n", t.fields.ControlledAmount)
	fmt.Fprintf(w, "Rewards sum:\t%s\n", t.fields.RewardsSum)
	fmt.Fprintf(w, "Rewards details:\t\n")
	w.Flush()

	for _, line := range t.fields.RewardsDetails {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	if t.fields.Status != "" {
		fmt.Fprintf(&b, "(%s)\n", t.fields.Status)
	}
	b.WriteString("\n")

	io.WriteString(t.out, b.String())
}
