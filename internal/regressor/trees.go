package regressor

import "fmt"

// Node is one node of a regression tree. A node with Left < 0 is a leaf.
// Internal nodes send x[Feature] <= Threshold to Left, everything else to Right.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// Tree is a flat regression tree rooted at Nodes[0]
type Tree struct {
	Nodes []Node
}

// TreeEnsemble is either a forest (mean of trees) or a boosted ensemble
// (Init + LearningRate * sum of trees), depending on the artifact kind.
type TreeEnsemble struct {
	Trees        []Tree
	Init         float64
	LearningRate float64
}

func (e *TreeEnsemble) check(n int) error {
	if len(e.Trees) == 0 {
		return fmt.Errorf("ensemble has no trees")
	}
	for ti, t := range e.Trees {
		if err := t.check(n); err != nil {
			return fmt.Errorf("tree %d: %w", ti, err)
		}
	}
	return nil
}

func (t *Tree) check(n int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, node := range t.Nodes {
		if node.Left < 0 {
			continue
		}
		if node.Feature < 0 || node.Feature >= n {
			return fmt.Errorf("node %d splits on feature %d of %d", i, node.Feature, n)
		}
		// children must point forward so evaluation always terminates
		if node.Left <= i || node.Left >= len(t.Nodes) || node.Right <= i || node.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, node.Left, node.Right)
		}
	}
	return nil
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Left < 0 {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

func (e *TreeEnsemble) mean(x []float64) float64 {
	sum := 0.0
	for i := range e.Trees {
		sum += e.Trees[i].predict(x)
	}
	return sum / float64(len(e.Trees))
}

func (e *TreeEnsemble) boosted(x []float64) float64 {
	sum := 0.0
	for i := range e.Trees {
		sum += e.Trees[i].predict(x)
	}
	return e.Init + e.LearningRate*sum
}
