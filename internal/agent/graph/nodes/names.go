package nodes

// Node names as registered in the graph.
const (
	NodeClassify = "Classify"
	NodeSearch   = "Search"
	NodeRespond  = "Respond"
	NodeHandoff  = "Handoff"
	NodeSilent   = "Silent"
)
