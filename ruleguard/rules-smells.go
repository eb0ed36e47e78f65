package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two guards in a row with the same return can be merged:
	//   if a { return err }
	//   if b { return err }
	// => if a || b { return err }
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	// Same shape inside loops.
	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	// Nested loops are not always wrong, but are worth a second look.
	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

// pipeline flags patterns that break the analysis pipeline's contracts.
func pipeline(m dsl.Matcher) {
	// Library packages log through slog; stdout belongs to the CLI and the
	// MCP stdio transport.
	m.Match(`fmt.Println($*_)`, `fmt.Printf($*_)`, `fmt.Print($*_)`).
		Where(!m.File().PkgPath.Matches(`/cmd/`)).
		Report(`print to stdout outside cmd/; use the injected *slog.Logger`)

	// Gateway failures are values; OK is the success check.
	m.Match(`$r.Failure == nil`).
		Where(m["r"].Type.Is(`llm.Response`)).
		Report(`use $r.OK() to test a gateway response`).
		Suggest(`$r.OK()`)
}
