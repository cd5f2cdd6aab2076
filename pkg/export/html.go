package export

import (
	"bytes"
	"html/template"
	"os"
	"strconv"

	"github.com/goccy/go-json"
	"go.trai.ch/zerr"

	"github.com/Dicklesworthstone/treenav/pkg/model"
)

// HTMLOptions controls GenerateHTML.
type HTMLOptions struct {
	Title string

	// DataHash is shown in the footer so a stale page is easy to spot.
	DataHash uint64
}

// htmlNode is the JSON shape embedded in the page for scripts.
type htmlNode struct {
	UID         uint64      `json:"uid"`
	Label       string      `json:"label"`
	Description string      `json:"description,omitempty"`
	Expanded    bool        `json:"expanded"`
	Children    []*htmlNode `json:"children,omitempty"`
}

func toHTMLNodes(branches []*model.Branch) []*htmlNode {
	out := make([]*htmlNode, 0, len(branches))
	for _, b := range branches {
		out = append(out, &htmlNode{
			UID:         b.UID,
			Label:       b.Label,
			Description: b.Description,
			Expanded:    b.Expanded,
			Children:    toHTMLNodes(b.Children),
		})
	}
	return out
}

// GenerateHTML renders an adopted forest as a self-contained page of nested
// disclosure elements. Branches start open or closed as they are in the
// forest. The tree is also embedded as JSON in #tree-data.
func GenerateHTML(forest model.Forest, opts HTMLOptions) (string, error) {
	if len(forest) == 0 {
		return "", model.ErrNoTreeData
	}
	nodes := toHTMLNodes(forest)
	data, err := json.Marshal(nodes)
	if err != nil {
		return "", zerr.Wrap(err, "encode tree data")
	}

	title := opts.Title
	if title == "" {
		title = "Tree"
	}
	var buf bytes.Buffer
	err = htmlTemplate.Execute(&buf, struct {
		Title    string
		Nodes    []*htmlNode
		Count    int
		DataHash string
		Data     template.JS
	}{
		Title:    title,
		Nodes:    nodes,
		Count:    forest.Count(),
		DataHash: strconv.FormatUint(opts.DataHash, 16),
		Data:     template.JS(data),
	})
	if err != nil {
		return "", zerr.Wrap(err, "render html")
	}
	return buf.String(), nil
}

// SaveHTMLToFile writes the page to filename.
func SaveHTMLToFile(forest model.Forest, opts HTMLOptions, filename string) error {
	content, err := GenerateHTML(forest, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		return zerr.With(zerr.Wrap(err, "write html export"), "path", filename)
	}
	return nil
}

var htmlTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} | tnav</title>
    <style>
        :root {
            --bg: #282a36;
            --bg-secondary: #44475a;
            --fg: #f8f8f2;
            --fg-muted: #6272a4;
            --purple: #bd93f9;
            --pink: #ff79c6;
            --yellow: #f1fa8c;
        }
        * { box-sizing: border-box; }
        body {
            font-family: 'JetBrains Mono', monospace;
            background: var(--bg);
            color: var(--fg);
            margin: 0;
        }
        header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            padding: 0.6rem 1.25rem;
            border-bottom: 2px solid var(--purple);
        }
        h1 { font-size: 1.1rem; font-weight: 600; margin: 0; }
        button, input {
            font-family: inherit;
            font-size: 0.75rem;
            padding: 0.35rem 0.7rem;
            border: 1px solid var(--bg-secondary);
            border-radius: 6px;
            background: var(--bg);
            color: var(--fg);
        }
        button { cursor: pointer; color: var(--fg-muted); }
        button:hover { color: var(--fg); }
        main { padding: 1rem 1.25rem; }
        ul { list-style: none; margin: 0; padding-left: 1.2rem; }
        main > ul { padding-left: 0; }
        summary { cursor: pointer; }
        summary::marker { color: var(--purple); }
        li.leaf::before { content: "• "; color: var(--fg-muted); }
        .desc { color: var(--fg-muted); margin-left: 0.5rem; }
        .match > summary, li.leaf.match { color: var(--yellow); }
        footer { padding: 0.6rem 1.25rem; color: var(--fg-muted); font-size: 0.7rem; }
    </style>
</head>
<body>
<header>
    <h1>{{.Title}}</h1>
    <div>
        <input id="search" type="search" placeholder="Find label">
        <button id="expand-all">Expand all</button>
        <button id="collapse-all">Collapse all</button>
    </div>
</header>
<main>
<ul>
{{range .Nodes}}{{template "branch" .}}{{end}}
</ul>
</main>
<footer>{{.Count}} branches · data {{.DataHash}}</footer>
<script type="application/json" id="tree-data">{{.Data}}</script>
<script>
(function() {
  var all = function() { return document.querySelectorAll('main details'); };
  document.getElementById('expand-all').onclick = function() {
    all().forEach(function(d) { d.open = true; });
  };
  document.getElementById('collapse-all').onclick = function() {
    all().forEach(function(d) { d.open = false; });
  };
  document.getElementById('search').oninput = function(e) {
    var q = e.target.value.trim().toLowerCase();
    document.querySelectorAll('main li').forEach(function(li) {
      var hit = q !== '' && li.dataset.label.toLowerCase().indexOf(q) >= 0;
      li.classList.toggle('match', hit);
      if (!hit) return;
      for (var p = li.parentElement; p; p = p.parentElement) {
        if (p.tagName === 'DETAILS') p.open = true;
      }
    });
  };
})();
</script>
</body>
</html>
{{define "branch"}}{{if .Children}}<li data-uid="{{.UID}}" data-label="{{.Label}}"><details {{if .Expanded}}open{{end}}><summary>{{.Label}}{{if .Description}}<span class="desc">{{.Description}}</span>{{end}}</summary>
<ul>
{{range .Children}}{{template "branch" .}}{{end}}</ul>
</details></li>
{{else}}<li class="leaf" data-uid="{{.UID}}" data-label="{{.Label}}">{{.Label}}{{if .Description}}<span class="desc">{{.Description}}</span>{{end}}</li>
{{end}}{{end}}`))
