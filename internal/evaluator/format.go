package evaluator

import (
	"fmt"
	"strings"
)

// String renders the report as a plain-text table for terminals.
func (r *Report) String() string {
	var b strings.Builder
	m := r.Confusion.Matrix()
	fmt.Fprintf(&b, "Confusion matrix (rows = truth, cols = prediction):\n")
	fmt.Fprintf(&b, "[[%d %d]\n [%d %d]]\n\n", m[0][0], m[0][1], m[1][0], m[1][1])

	fmt.Fprintf(&b, "%12s %9s %9s %9s %9s\n\n", "", "precision", "recall", "f1-score", "support")
	row := func(name string, c ClassMetrics) {
		fmt.Fprintf(&b, "%12s %9.2f %9.2f %9.2f %9d\n", name, c.Precision, c.Recall, c.F1, c.Support)
	}
	row("False", r.Negative)
	row("True", r.Positive)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %9s %9s %9.2f %9d\n", "accuracy", "", "", r.Accuracy, r.Confusion.Total())
	row("macro avg", r.MacroAvg)
	row("weighted avg", r.WeightedAvg)
	fmt.Fprintf(&b, "\nROC-AUC: %.4f\n", r.ROCAUC)
	return b.String()
}

func (d *Diagnostics) String() string {
	return fmt.Sprintf("%s: count=%d mean=%.4f stddev=%.4f sample=%v",
		d.Outcome, d.Count, d.Mean, d.StdDev, d.SampledIDs)
}
