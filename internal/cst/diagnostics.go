package cst

import (
	"fmt"

	"texel/internal/diag"
	"texel/internal/token"
)

// ParseDiagnostics derives source diagnostics from the recovery markers
// embedded in the tree. The builder itself never fails; everything a
// reviewer of the document needs to know is in these records.
func ParseDiagnostics(t *Tree) []diag.Diagnostic {
	var out []diag.Diagnostic
	t.Walk(t.Root, func(_ NodeID, n *Node) bool {
		switch n.Kind {
		case KindError:
			code := diag.SynUnmatchedGroup
			msg := "unmatched delimiter"
			if len(n.Name) >= 11 && n.Name[:11] == "environment" {
				code = diag.SynUnmatchedEnvironment
				msg = `\end without matching \begin`
			} else if n.Unclosed {
				msg = "unclosed group"
			}
			out = append(out, diag.New(diag.SevError, code, n.Span, msg).
				WithConfidence(n.Confidence))

		case KindMismatchError:
			out = append(out, diag.New(
				diag.SevError,
				diag.SynUnmatchedEnvironment,
				n.Span,
				fmt.Sprintf("environment closed by \\end{%s}", n.Name),
			).WithConfidence(n.Confidence))

		case KindEnvironment:
			if n.Unclosed {
				out = append(out, diag.New(
					diag.SevError,
					diag.SynUnmatchedEnvironment,
					n.Span,
					fmt.Sprintf("unclosed environment %q", n.Name),
				).WithConfidence(n.Confidence))
			}

		case KindMath:
			if n.Unclosed {
				code := diag.SynParseRecovery
				msg := "unclosed math"
				if n.Name != "" {
					code = diag.SynUnmatchedEnvironment
					msg = fmt.Sprintf("unclosed environment %q", n.Name)
				}
				out = append(out, diag.New(diag.SevError, code, n.Span, msg).
					WithConfidence(n.Confidence))
			}

		case KindToken:
			if n.Token.Kind == token.Invalid {
				out = append(out, diag.New(
					diag.SevWarning,
					diag.SynParseRecovery,
					n.Span,
					"stray backslash at end of input",
				).WithConfidence(0.9))
			}
		}
		return true
	})
	return out
}
