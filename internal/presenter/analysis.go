package presenter

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/crocodileps/Mon-ps-sub009/internal/backtest"
	"github.com/crocodileps/Mon-ps-sub009/internal/decision"
	"github.com/crocodileps/Mon-ps-sub009/internal/engine"
	"github.com/crocodileps/Mon-ps-sub009/internal/services"
	"github.com/crocodileps/Mon-ps-sub009/internal/shorting"
	"github.com/crocodileps/Mon-ps-sub009/internal/tracker"
	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
}

func bet(b decision.SmartBet) string {
	if b.IsSkip() {
		return "SKIP"
	}
	s := fmt.Sprintf("%s @ %.0f%% [%s]", b.Selection, b.Probability*100, b.Sizing)
	if odds := b.TypicalOdds(); odds > 0 {
		s += fmt.Sprintf(" typical %.2f", odds)
	}
	return s
}

// Analysis writes a readable summary of one fixture.
func Analysis(w io.Writer, a *engine.Analysis) error {
	if a == nil {
		return nil
	}
	var b strings.Builder

	fmt.Fprintf(&b, "%s vs %s", a.Home.Name, a.Away.Name)
	if a.League != "" {
		fmt.Fprintf(&b, " (%s)", a.League)
	}
	fmt.Fprintf(&b, "  [%s]\n", a.Status)
	if a.Status == utils.StatusError {
		fmt.Fprintf(&b, "  error %s: %s\n", a.ErrorCode, a.Message)
		writeList(&b, "reasons", Reasons(a.Reasons))
		_, err := io.WriteString(w, b.String())
		return err
	}

	p := a.Projection
	fmt.Fprintf(&b, "  xG %.2f - %.2f (total %.2f)  friction %.0f  chaos %.0f\n", p.HomeXG, p.AwayXG, p.TotalXG, p.Friction, p.Chaos)
	fmt.Fprintf(&b, "  value %.1f / %.1f  z %.2f / %.2f\n",
		a.Home.Value.ValueScore, a.Away.Value.ValueScore, a.Home.Z.ZScore, a.Away.Z.ZScore)
	fmt.Fprintf(&b, "  markets %s (%s)  alignment %s %+.0f\n", a.Markets.Rule, a.Markets.Action, a.Alignment.Alignment, a.Alignment.Modifier)

	d := a.Decision
	fmt.Fprintf(&b, "  decision %s  confidence %.0f%%  data %s\n", d.Type, d.Confidence*100, a.DataQuality)
	fmt.Fprintf(&b, "  primary   %s\n", bet(d.Primary))
	for _, s := range d.Secondaries {
		fmt.Fprintf(&b, "  secondary %s\n", bet(s))
	}
	fmt.Fprintf(&b, "  cards %.2f (over 3.5 %.0f%%, over 4.5 %.0f%%) %s\n",
		a.Cards.Total, a.Cards.ProbOver35*100, a.Cards.ProbOver45*100, a.Cards.Recommendation)
	fmt.Fprintf(&b, "  corners %.2f\n", a.Corners.Total)

	writeList(&b, "rationale", Reasons(d.Rationale))
	writeList(&b, "warnings", Reasons(d.Warnings))
	writeList(&b, "notes", Reasons(a.Reasons))

	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s:\n", title)
	for _, l := range lines {
		fmt.Fprintf(b, "    - %s\n", l)
	}
}

func Shorts(w io.Writer, out []shorting.Assessment) error {
	if len(out) == 0 {
		_, err := fmt.Fprintln(w, "no shorting opportunities")
		return err
	}
	tw := table(w)
	fmt.Fprintln(tw, "TEAM\tSIGNAL\tRISK\tCOLLAPSE\tKELLY\tCRISIS\tSUGGESTIONS")
	for _, a := range out {
		suggestions := make([]string, 0, len(a.Suggestions))
		for _, s := range a.Suggestions {
			suggestions = append(suggestions, string(s.Market))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%.2f\t%.2f\t%s\n",
			a.Team, a.Signal, a.RiskLevel, a.CollapseProbability, a.KellyMultiplier, a.CrisisRatio, strings.Join(suggestions, ","))
	}
	return tw.Flush()
}

func Backtest(w io.Writer, r *backtest.Report) error {
	if r == nil {
		return nil
	}
	fmt.Fprintf(w, "backtest %s  %s to %s  fixtures %d\n",
		r.RunID, r.From.Format("2006-01-02"), r.To.Format("2006-01-02"), r.Fixtures)
	fmt.Fprintf(w, "total: %d bets, %d wins, %d pushes, staked %.2f, profit %+.2f, ROI %.2f%%\n",
		r.Total.Bets, r.Total.Wins, r.Total.Pushes, r.Total.Staked, r.Total.Profit, r.Total.ROI)

	tw := table(w)
	fmt.Fprintln(tw, "GROUP\tKEY\tBETS\tWINS\tPROFIT\tROI")
	groups := []struct {
		name    string
		buckets map[string]*backtest.Bucket
	}{
		{"decision", r.ByDecision},
		{"scenario", r.ByScenario},
		{"market", r.ByMarket},
		{"league", r.ByLeague},
	}
	for _, g := range groups {
		for _, k := range sortedKeys(g.buckets) {
			bk := g.buckets[k]
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%+.2f\t%.2f%%\n", g.name, k, bk.Bets, bk.Wins, bk.Profit, bk.ROI)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.FilterReasons) > 0 {
		keys := make([]string, 0, len(r.FilterReasons))
		for k := range r.FilterReasons {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w, "filtered:")
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %d\n", k, r.FilterReasons[k])
		}
	}
	return nil
}

func sortedKeys(m map[string]*backtest.Bucket) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func Resolution(w io.Writer, s tracker.ResolveSummary) error {
	_, err := fmt.Fprintf(w, "resolved %d picks over %d fixtures: %d won, %d lost, %d pushed, profit %s",
		s.Resolved, s.Fixtures, s.Wins, s.Losses, s.Pushes, s.Profit.StringFixed(2))
	if err != nil {
		return err
	}
	if s.MissingStat > 0 || s.Failed > 0 {
		_, err = fmt.Fprintf(w, " (%d awaiting stats, %d failed)", s.MissingStat, s.Failed)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w)
	return err
}

func Conflicts(w io.Writer, cs []tracker.Conflict) error {
	if len(cs) == 0 {
		_, err := fmt.Fprintln(w, "no resolution conflicts")
		return err
	}
	tw := table(w)
	fmt.Fprintln(tw, "PICK\tMATCH\tMARKET\tSTORED\tRECOMPUTED\tSTORED P/L\tRECOMPUTED P/L")
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%+.2f\t%+.2f\n",
			c.PickID, c.MatchID, c.Market, c.Stored, c.Recomputed, c.StoredPL, c.RecomputedPL)
	}
	return tw.Flush()
}

func CLVRollups(w io.Writer, rs []tracker.CLVRollup) error {
	tw := table(w)
	fmt.Fprintln(tw, "DIMENSION\tKEY\tPICKS\tAVG CLV\tBEAT CLOSE")
	for _, r := range rs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%+.2f%%\t%.1f%%\n", r.Dimension, r.Key, r.Picks, r.AvgCLV, r.BeatCloseShare)
	}
	return tw.Flush()
}

func Drift(w io.Writer, ds []tracker.Drift) error {
	tw := table(w)
	fmt.Fprintln(tw, "MARKET\tPICKS\tWINS\tWIN RATE\tMODEL\tDRIFT")
	for _, d := range ds {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f%%\t%.2f%%\t%+.2f\n", d.Market, d.Picks, d.Wins, d.WinRate, d.MeanProbability, d.Drift)
	}
	return tw.Flush()
}

func Opportunities(w io.Writer, r *services.OpportunityReport) error {
	if r == nil {
		return nil
	}
	for _, a := range r.Analyses {
		if err := Analysis(w, a); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "fixtures %d, analyzed %d, skipped %d, picks created %d updated %d skipped %d\n",
		r.Fixtures, r.Analyzed, r.Skipped, r.Picks.Created, r.Picks.Updated, r.Picks.Skipped)
	if len(r.Picks.Rejected) > 0 {
		fmt.Fprintf(w, "rejected: %s\n", strings.Join(r.Picks.Rejected, ", "))
	}
	if len(r.Errors) > 0 {
		keys := make([]string, 0, len(r.Errors))
		for k := range r.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "errors %s: %d\n", k, r.Errors[k])
		}
	}
	return nil
}
