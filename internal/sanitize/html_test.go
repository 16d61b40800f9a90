package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextStripsAllTags(t *testing.T) {
	require.Equal(t, "Jazz Night", Text("Jazz <b>Night</b>"))
	// The strict policy drops script elements together with their content.
	require.Equal(t, "", Text("<script>alert(1)</script>"))
	require.Equal(t, "plain", Text("plain"))
}

func TestHTMLKeepsSafeFormatting(t *testing.T) {
	out := HTML("<p>A <b>great</b> night</p><script>evil()</script>")
	require.Contains(t, out, "<b>great</b>")
	require.NotContains(t, out, "script")
}

func TestHTMLDropsEventHandlers(t *testing.T) {
	out := HTML(`<img src="x" onerror="alert(1)">hello`)
	require.NotContains(t, out, "onerror")
	require.Contains(t, out, "hello")
}
