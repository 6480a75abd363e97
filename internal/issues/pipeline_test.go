package issues

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"k8s.io/utils/pointer"
)

type lineSet map[string]map[int]bool

func (s lineSet) Contains(file string, line int) bool {
	return s[file][line]
}

func issue(file string, line int, sev Severity) Issue {
	return Issue{File: file, Line: line, RuleID: "force_cast", Reason: "Force casts should be avoided.", Severity: sev}
}

func TestPipelineCap(t *testing.T) {
	batch := []Issue{
		issue("/r/A.swift", 1, Warning),
		issue("/r/A.swift", 2, Error),
		issue("/r/A.swift", 3, Warning),
		issue("/r/A.swift", 4, Error),
		issue("/r/A.swift", 5, Warning),
	}

	res := Pipeline{Max: pointer.Int(2)}.Apply([][]Issue{batch})

	assert.Len(t, res.Issues, 2)
	assert.Equal(t, 3, res.Overflow)
	assert.Equal(t, []Issue{batch[0]}, res.Warnings)
	assert.Equal(t, []Issue{batch[1]}, res.Errors)
}

func TestPipelineNoCap(t *testing.T) {
	batch := []Issue{issue("/r/A.swift", 1, Warning), issue("/r/A.swift", 2, Warning)}

	testCases := []struct {
		name string
		max  *int
		want int
	}{
		{name: "unset", max: nil, want: 2},
		{name: "above total", max: pointer.Int(5), want: 2},
		{name: "equal to total", max: pointer.Int(2), want: 2},
		{name: "zero", max: pointer.Int(0), want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := Pipeline{Max: tc.max}.Apply([][]Issue{batch})
			assert.Len(t, res.Issues, tc.want)
			assert.Equal(t, len(batch)-tc.want, res.Overflow)
		})
	}
}

func TestPipelineFlattensInOrder(t *testing.T) {
	first := []Issue{issue("/r/A.swift", 1, Warning)}
	second := []Issue{issue("/r/B.swift", 7, Error), issue("/r/B.swift", 9, Warning)}

	res := Pipeline{}.Apply([][]Issue{first, nil, second})

	assert.Equal(t, []Issue{first[0], second[0], second[1]}, res.Issues)
	assert.Equal(t, 0, res.Overflow)
}

func TestPipelineDiffScoping(t *testing.T) {
	batch := []Issue{
		issue("/r/A.swift", 14, Error),
		issue("/r/A.swift", 16, Error),
		issue("Sources/B.swift", 3, Warning),
	}
	lines := lineSet{
		"/r/A.swift":         {16: true, 17: true},
		"/r/Sources/B.swift": {3: true},
	}

	scoped := Pipeline{Lines: lines, Directory: "/r"}.Apply([][]Issue{batch})
	assert.Equal(t, []Issue{batch[1], batch[2]}, scoped.Issues)

	unscoped := Pipeline{Directory: "/r"}.Apply([][]Issue{batch})
	assert.Len(t, unscoped.Issues, 3)
}

func TestPipelinePredicateBeforeCap(t *testing.T) {
	batch := []Issue{
		issue("/r/A.swift", 13, Error),
		issue("/r/A.swift", 16, Error),
		issue("/r/A.swift", 20, Error),
	}

	res := Pipeline{
		Predicate: func(i Issue) bool { return i.Line != 13 },
		Max:       pointer.Int(1),
	}.Apply([][]Issue{batch})

	assert.Equal(t, []Issue{batch[1]}, res.Issues)
	assert.Equal(t, 1, res.Overflow)
}

func TestPipelineNoCommentSkipsPredicateAndCap(t *testing.T) {
	batch := []Issue{issue("/r/A.swift", 13, Error), issue("/r/A.swift", 16, Warning)}

	res := Pipeline{
		Predicate: func(Issue) bool { return false },
		Max:       pointer.Int(1),
		NoComment: true,
	}.Apply([][]Issue{batch})

	assert.Len(t, res.Issues, 2)
	assert.Equal(t, 0, res.Overflow)
	assert.Equal(t, len(res.Issues), len(res.Warnings)+len(res.Errors))
}

func TestPipelineDoesNotMutateInput(t *testing.T) {
	batch := []Issue{issue("/r/A.swift", 1, Warning), issue("/r/A.swift", 2, Warning)}
	p := Pipeline{Predicate: func(i Issue) bool { return i.Line == 2 }}

	first := p.Apply([][]Issue{batch})
	second := p.Apply([][]Issue{batch})

	assert.Equal(t, first, second)
	assert.Equal(t, 1, batch[0].Line)
	assert.Equal(t, 2, batch[1].Line)
}

func TestPipelineSkipsUnclassifiedSeverity(t *testing.T) {
	batch := []Issue{issue("/r/A.swift", 1, Warning), issue("/r/A.swift", 2, "")}

	res := Pipeline{}.Apply([][]Issue{batch})

	assert.Equal(t, []Issue{batch[0]}, res.Warnings)
	assert.Empty(t, res.Errors)
}
