package ingest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const articlePage = `<!DOCTYPE html>
<html>
<head>
<title>On the Cultivation of Orchards</title>
<style>body { margin: 0; }</style>
<script>var trackingSecret = "do-not-ingest";</script>
</head>
<body>
<nav><ul><li><a href="/">Home</a></li><li><a href="/about">About</a></li></ul></nav>
<article>
<h1>On the Cultivation of Orchards</h1>
<p>Orchard cultivation rewards patience more than any other branch of
horticulture, because a tree planted today will not bear worthwhile fruit
for several seasons.</p>
<p>Grafting remains the orchardist's most reliable instrument, joining the
vigor of an established rootstock to the proven fruit of a chosen scion.</p>
<p>Pruning in late winter, while the wood is dormant, channels the tree's
reserves into the branches that will carry the coming harvest.</p>
</article>
<footer><p>Copyright notice footer text.</p></footer>
</body>
</html>`

func TestCleanNormalizesUnicode(t *testing.T) {
	// U+FB01 ligature and fullwidth letters fold to ASCII under NFKC.
	got := Clean("ﬁne Ｔｅｘｔ")
	want := "fine Text"
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestCleanDropsControlCharacters(t *testing.T) {
	got := Clean("a\x00b\x1Fc")
	if got != "abc" {
		t.Errorf("Clean() = %q, want %q", got, "abc")
	}
}

func TestCleanKeepsStructure(t *testing.T) {
	got := Clean("  line one\r\n\r\nline two\tcolumn  ")
	want := "line one\n\nline two\tcolumn"
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestIsURL(t *testing.T) {
	cases := []struct {
		arg  string
		want bool
	}{
		{"https://example.com/essay", true},
		{"http://example.com", true},
		{"essay.txt", false},
		{"/tmp/essay.html", false},
		{"-", false},
		{"ftp://example.com", false},
	}
	for _, tc := range cases {
		if got := IsURL(tc.arg); got != tc.want {
			t.Errorf("IsURL(%q) = %v, want %v", tc.arg, got, tc.want)
		}
	}
}

func TestResolveStdin(t *testing.T) {
	r := NewResolver(quietLogger())
	r.stdin = strings.NewReader("  hello from stdin \n")

	in, err := r.Resolve(context.Background(), "-")
	if err != nil {
		t.Fatalf("Resolve(-) error: %v", err)
	}
	if in.Source != StdinSource {
		t.Errorf("Source = %q, want %q", in.Source, StdinSource)
	}
	if in.Text != "hello from stdin" {
		t.Errorf("Text = %q", in.Text)
	}
	if in.HTML {
		t.Error("stdin input flagged as HTML")
	}
}

func TestResolvePlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essay.txt")
	if err := os.WriteFile(path, []byte("plain essay content\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(quietLogger())
	in, err := r.Resolve(context.Background(), path)
	if err != nil {
		t.Fatalf("Resolve(file) error: %v", err)
	}
	if in.Source != path {
		t.Errorf("Source = %q, want %q", in.Source, path)
	}
	if in.Text != "plain essay content" {
		t.Errorf("Text = %q", in.Text)
	}
	if in.HTML {
		t.Error("plain text flagged as HTML")
	}
}

func TestResolveHTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(articlePage), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(quietLogger())
	in, err := r.Resolve(context.Background(), path)
	if err != nil {
		t.Fatalf("Resolve(html file) error: %v", err)
	}
	if !in.HTML {
		t.Error("HTML file not flagged as HTML")
	}
	if !strings.Contains(in.Text, "rewards patience") {
		t.Errorf("article text missing, got %q", in.Text)
	}
	if strings.Contains(in.Text, "do-not-ingest") {
		t.Error("script content leaked into text")
	}
	if strings.Contains(in.Text, "<p>") {
		t.Error("markup leaked into text")
	}
}

func TestResolveMissingFile(t *testing.T) {
	r := NewResolver(quietLogger())
	if _, err := r.Resolve(context.Background(), filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolvePlainTextURL(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotUA = req.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "downloaded essay text\n")
	}))
	defer srv.Close()

	r := NewResolver(quietLogger())
	in, err := r.Resolve(context.Background(), srv.URL+"/essay.txt")
	if err != nil {
		t.Fatalf("Resolve(url) error: %v", err)
	}
	if in.Text != "downloaded essay text" {
		t.Errorf("Text = %q", in.Text)
	}
	if in.HTML {
		t.Error("plain response flagged as HTML")
	}
	if gotUA != userAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, userAgent)
	}
}

func TestResolveHTMLURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, articlePage)
	}))
	defer srv.Close()

	r := NewResolver(quietLogger())
	in, err := r.Resolve(context.Background(), srv.URL+"/orchards")
	if err != nil {
		t.Fatalf("Resolve(html url) error: %v", err)
	}
	if !in.HTML {
		t.Error("text/html response not flagged as HTML")
	}
	if !strings.Contains(in.Text, "established rootstock") {
		t.Errorf("article text missing, got %q", in.Text)
	}
	if strings.Contains(in.Text, "do-not-ingest") {
		t.Error("script content leaked into text")
	}
}

func TestResolveHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	}))
	defer srv.Close()

	r := NewResolver(quietLogger())
	_, err := r.Resolve(context.Background(), srv.URL+"/gone")
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "status code: 404") {
		t.Errorf("error = %v, want status code mention", err)
	}
}

func TestFallbackExtractPicksDensestContainer(t *testing.T) {
	html := `<html><body>
<div class="wrapper">
<nav><ul><li>Home</li><li>Products</li><li>Contact</li></ul></nav>
<article>
<p>The first substantive paragraph carries the argument forward.</p>
<p>The second substantive paragraph develops the supporting evidence.</p>
</article>
</div>
<script>var junk = 1;</script>
</body></html>`

	got, err := fallbackExtract(html)
	if err != nil {
		t.Fatalf("fallbackExtract error: %v", err)
	}
	if !strings.Contains(got, "substantive paragraph carries") {
		t.Errorf("article text missing, got %q", got)
	}
	if strings.Contains(got, "Products") {
		t.Errorf("navigation text leaked, got %q", got)
	}
	if strings.Contains(got, "var junk") {
		t.Errorf("script text leaked, got %q", got)
	}
}

func TestFallbackExtractBareParagraphs(t *testing.T) {
	html := `<html><body><p>Just one paragraph, straight under body.</p></body></html>`
	got, err := fallbackExtract(html)
	if err != nil {
		t.Fatalf("fallbackExtract error: %v", err)
	}
	if !strings.Contains(got, "straight under body") {
		t.Errorf("paragraph missing, got %q", got)
	}
}

func TestExtractArticleEndToEnd(t *testing.T) {
	got, err := ExtractArticle(articlePage, "https://example.com/orchards")
	if err != nil {
		t.Fatalf("ExtractArticle error: %v", err)
	}
	for _, phrase := range []string{"rewards patience", "established rootstock", "coming harvest"} {
		if !strings.Contains(got, phrase) {
			t.Errorf("extracted text missing %q", phrase)
		}
	}
	if strings.Contains(got, "do-not-ingest") {
		t.Error("script content leaked into article text")
	}
}
