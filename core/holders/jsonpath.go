package holders

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/tidwall/gjson"

	"github.com/FocuswithJustin/exprholders/core/errors"
)

// minPathLen is the length of the shortest usable path, "$.x".
const minPathLen = 3

// pathGrammar is the participle grammar for get_json_object paths.
// Examples: "$.a", "$.a.b", "$['a']", `$["a b"]`, "$[a]", "$.items[0]"
//
//nolint:govet // participle grammar tags are not standard struct tags
type pathGrammar struct {
	Segments []*pathSegment `"$" @@+`
}

//nolint:govet // participle grammar tags are not standard struct tags
type pathSegment struct {
	Member  *string      `  "." @Ident`
	Bracket *bracketPart `| "[" @@ "]"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type bracketPart struct {
	Quoted *string `  @String`
	Bare   *string `| @Ident`
}

// pathLexer tokenizes path expressions. Bare names may contain anything but
// separators and quotes, and may not start with '$'.
var pathLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Root", Pattern: `\$`},
	{Name: "String", Pattern: `'[^']*'|"(?:\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[^.\[\]'"$][^.\[\]'"]*`},
	{Name: "Punct", Pattern: `[.\[\]]`},
})

var pathParser = participle.MustBuild[pathGrammar](
	participle.Lexer(pathLexer),
)

// ParsePath splits a dialect path expression into its field segments.
func ParsePath(path string) ([]string, error) {
	if len(path) < minPathLen {
		return nil, errors.NewParse("JSON path", path, "path is too short")
	}
	parsed, err := pathParser.ParseString("", path)
	if err != nil {
		return nil, &errors.ParseError{Format: "JSON path", Input: path, Message: "invalid path expression", Err: err}
	}

	segments := make([]string, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		switch {
		case seg.Member != nil:
			segments = append(segments, *seg.Member)
		case seg.Bracket.Bare != nil:
			segments = append(segments, *seg.Bracket.Bare)
		default:
			name, err := unquoteSegment(*seg.Bracket.Quoted)
			if err != nil {
				return nil, &errors.ParseError{Format: "JSON path", Input: path, Message: "invalid quoted segment", Err: err}
			}
			segments = append(segments, name)
		}
	}
	return segments, nil
}

// TranslatePath converts a dialect path expression into a gjson path.
func TranslatePath(path string) (string, error) {
	segments, err := ParsePath(path)
	if err != nil {
		return "", err
	}
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = gjson.Escape(seg)
	}
	return strings.Join(escaped, "."), nil
}

func unquoteSegment(tok string) (string, error) {
	if tok[0] == '"' {
		return strconv.Unquote(tok)
	}
	return tok[1 : len(tok)-1], nil
}
