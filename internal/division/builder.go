package division

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrDuplicateCode：输入集合内 code 重复
var ErrDuplicateCode = errors.New("duplicate unit code")

// DuplicateCodeError：携带重复的 code 及两次出现的位置
type DuplicateCodeError struct {
	Code   string
	First  int
	Second int
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("duplicate unit code %q at index %d and %d", e.Code, e.First, e.Second)
}

func (e *DuplicateCodeError) Is(target error) bool { return target == ErrDuplicateCode }

// Issue：被跳过的畸形记录
type Issue struct {
	Index  int    `json:"index"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason"`
}

// Report：一次构建的诊断信息，不影响森林本身
// Omitted 为“上级不可解析且非根层级”而被丢弃的单元；该策略沿用既有行为，仅在此暴露以便排查数据
type Report struct {
	Skipped      []Issue    `json:"skipped,omitempty"`
	Omitted      []string   `json:"omitted,omitempty"`
	SelfParented []string   `json:"selfParented,omitempty"`
	Cycles       [][]string `json:"cycles,omitempty"`
}

// Clean：没有任何诊断项
func (r Report) Clean() bool {
	return len(r.Skipped) == 0 && len(r.Omitted) == 0 && len(r.SelfParented) == 0 && len(r.Cycles) == 0
}

// Builder：带校验与诊断的树构建入口
// 约束：无状态，可被多个请求并发使用；输入切片只读
type Builder struct {
	RootLevel Level
}

// Build：校验、构建并生成诊断
// 返回：森林与报告；仅在 code 重复时返回 error（ErrDuplicateCode）
func (b Builder) Build(units []Unit) ([]*TreeNode, Report, error) {
	var rep Report
	root := b.RootLevel
	if root == "" {
		root = LevelProvince
	}
	valid := make([]Unit, 0, len(units))
	seen := make(map[string]int, len(units))
	for i, u := range units {
		code := strings.TrimSpace(u.Code)
		if code == "" {
			rep.Skipped = append(rep.Skipped, Issue{Index: i, Reason: "missing code"})
			continue
		}
		if j, dup := seen[code]; dup {
			return nil, Report{}, &DuplicateCodeError{Code: code, First: j, Second: i}
		}
		seen[code] = i
		u.Code = code
		valid = append(valid, u)
	}

	forest, nodes := assemble(valid, root)

	for _, u := range valid {
		p, ok := u.Parent()
		if ok && p == u.Code {
			rep.SelfParented = append(rep.SelfParented, u.Code)
		}
		resolved := ok && p != u.Code && nodes[p] != nil
		if !resolved && u.Level != root {
			rep.Omitted = append(rep.Omitted, u.Code)
		}
	}
	rep.Cycles = FindCycles(valid)
	return forest, rep, nil
}

const (
	white = iota
	grey
	black
)

// FindCycles：沿上级链查找环
// 背景：三色标记遍历，每条路径结束后整体标黑，因此遇到灰色节点必在当前路径上
// 返回：每个环按首次到达的成员开始、沿上级方向排列；自指不算环（构建时已按不可解析处理）
func FindCycles(units []Unit) [][]string {
	present := make(map[string]struct{}, len(units))
	parent := make(map[string]string, len(units))
	for _, u := range units {
		code := strings.TrimSpace(u.Code)
		present[code] = struct{}{}
		if p, ok := u.Parent(); ok && p != code {
			parent[code] = p
		} else {
			delete(parent, code)
		}
	}
	state := make(map[string]int, len(units))
	var cycles [][]string
	for _, u := range units {
		cur := strings.TrimSpace(u.Code)
		if state[cur] != white {
			continue
		}
		var path []string
		pos := make(map[string]int)
		for {
			st := state[cur]
			if st == black {
				break
			}
			if st == grey {
				ring := make([]string, len(path)-pos[cur])
				copy(ring, path[pos[cur]:])
				cycles = append(cycles, ring)
				break
			}
			state[cur] = grey
			pos[cur] = len(path)
			path = append(path, cur)
			p, ok := parent[cur]
			if !ok {
				break
			}
			if _, ok := present[p]; !ok {
				break
			}
			cur = p
		}
		for _, c := range path {
			state[c] = black
		}
	}
	return cycles
}
