package parser

import "strings"

// propagateBlank computes each block-type node's derived blank flag bottom-up
// (spec §4.3: "Block nodes carry a derived blank flag: true iff every child
// is blank") and returns whether the whole list passed in is itself blank.
// Called once, after a template's full node tree is built, so nested blocks
// see their children's already-settled flags.
func propagateBlank(nodes []Node) bool {
	all := true
	for _, n := range nodes {
		if !propagateNodeBlank(n) {
			all = false
		}
	}
	return all
}

func propagateNodeBlank(n Node) bool {
	switch node := n.(type) {
	case *ContentNode:
		blank := strings.TrimSpace(node.Text) == ""
		node.SetBlank(blank)
		return blank
	case *OutputNode:
		return node.Blank()
	case *IfNode:
		return setBranchesBlank(node, node.Branches)
	case *UnlessNode:
		return setBranchesBlank(node, node.Branches)
	case *CaseNode:
		blank := true
		for _, w := range node.Whens {
			if !propagateBlank(w.Body) {
				blank = false
			}
		}
		if !propagateBlank(node.Else) {
			blank = false
		}
		node.SetBlank(blank)
		return blank
	case *ForNode:
		bodyBlank := propagateBlank(node.Body)
		elseBlank := propagateBlank(node.Else)
		blank := bodyBlank && elseBlank
		node.SetBlank(blank)
		return blank
	case *TableRowNode:
		// Always emits its own <tr>/<td> wrapper markup, never blank.
		propagateBlank(node.Body)
		node.SetBlank(false)
		return false
	case *IfChangedNode:
		blank := propagateBlank(node.Body)
		node.SetBlank(blank)
		return blank
	case *CaptureNode:
		propagateBlank(node.Body)
		// Capture never writes to the surrounding output itself.
		node.SetBlank(true)
		return true
	case *BlockNode:
		blank := propagateBlank(node.Body)
		node.SetBlank(blank)
		return blank
	case *MacroNode:
		propagateBlank(node.Body)
		// A macro definition emits nothing at its own site; `call` sites
		// are analyzed independently since the body is only rendered there.
		node.SetBlank(true)
		return true
	case *WithNode:
		blank := propagateBlank(node.Body)
		node.SetBlank(blank)
		return blank
	case *LiquidNode:
		blank := propagateBlank(node.Body)
		node.SetBlank(blank)
		return blank
	default:
		return node.Blank()
	}
}

func setBranchesBlank(setter BlankSetter, branches []IfBranch) bool {
	blank := true
	for _, b := range branches {
		if !propagateBlank(b.Body) {
			blank = false
		}
	}
	setter.SetBlank(blank)
	return blank
}
