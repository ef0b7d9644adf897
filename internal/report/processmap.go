package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ib823/sapforensics/internal/mining"
)

// Node sizing for the process-map graphs.
const (
	nodeSizeMin  = 10
	nodeSizeStep = 4
	nodeSizeMax  = 40
)

const graphRepulsion = 800

const (
	startNodeColor = "#2e7d32"
	endNodeColor   = "#c62828"
)

// ToProcessMap builds the interactive process maps: one force-directed
// graph per mined process, nodes sized by throughput and edges weighted by
// observed frequency.
func (r *ForensicReport) ToProcessMap() *components.Page {
	page := components.NewPage()
	page.PageTitle = "Process Map"

	for _, process := range r.ToDependencyGraph().Processes {
		page.AddCharts(processGraphChart(process))
	}

	return page
}

// RenderProcessMap writes the process-map HTML page to w.
func (r *ForensicReport) RenderProcessMap(w io.Writer) error {
	err := r.ToProcessMap().Render(w)
	if err != nil {
		return fmt.Errorf("render process map: %w", err)
	}

	return nil
}

func processGraphChart(process ProcessGraph) *charts.Graph {
	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: process.ProcessID}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "600px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	throughput := nodeThroughput(process.Edges)
	starts := toSet(process.Starts)
	ends := toSet(process.Ends)

	nodes := make([]opts.GraphNode, 0, len(process.Nodes))

	for _, name := range process.Nodes {
		node := opts.GraphNode{
			Name:       name,
			SymbolSize: nodeSize(throughput[name]),
		}

		if _, ok := starts[name]; ok {
			node.ItemStyle = &opts.ItemStyle{Color: startNodeColor}
		}

		if _, ok := ends[name]; ok {
			node.ItemStyle = &opts.ItemStyle{Color: endNodeColor}
		}

		nodes = append(nodes, node)
	}

	links := make([]opts.GraphLink, 0, len(process.Edges))

	for _, edge := range process.Edges {
		links = append(links, opts.GraphLink{
			Source: edge.From,
			Target: edge.To,
			Value:  float32(edge.Frequency),
		})
	}

	graph.AddSeries(process.ProcessID, nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:     "force",
			Roam:       opts.Bool(true),
			Force:      &opts.GraphForce{Repulsion: graphRepulsion},
			EdgeSymbol: []string{"none", "arrow"},
		}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right"}),
	)

	return graph
}

func nodeThroughput(edges []mining.DependencyEdge) map[string]int {
	counts := make(map[string]int)

	for _, edge := range edges {
		counts[edge.From] += edge.Frequency
		counts[edge.To] += edge.Frequency
	}

	return counts
}

func nodeSize(throughput int) int {
	size := nodeSizeMin + nodeSizeStep*throughput
	if size > nodeSizeMax {
		return nodeSizeMax
	}

	return size
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}

	return set
}
