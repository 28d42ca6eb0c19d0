package division

import "strings"

// TreeNode：树节点，即 Unit 字段加 children
// 约束：Children 永不为 nil，序列化时至少为 []
type TreeNode struct {
	Unit
	Children []*TreeNode `json:"children"`
}

// BuildTree：由扁平记录重建森林
// 背景：先以全部记录建立 code -> 节点映射，再按输入顺序逐条挂载：
// 上级可解析则追加到上级 children；否则若层级为根层级则进入森林；否则丢弃。
// 约束：parentCode == code 视为不可解析，避免节点成为自己的子节点；
// 更长的环（A->B->A）按原样保留，环上节点互为子节点且都不在森林中。
// 重复 code 时映射为后写覆盖，只有持有映射项的那一条被挂载，节点不会重复出现。
// code 与 parentCode 均去除首尾空白后匹配，输入切片不被修改。
func BuildTree(units []Unit, rootLevel Level) []*TreeNode {
	forest, _ := assemble(units, rootLevel)
	return forest
}

// assemble：返回森林与节点映射；映射仅供包内诊断与测试使用
// code 与 parentCode 一样去除首尾空白后再比较，节点中的 Code 为去空白后的值
func assemble(units []Unit, rootLevel Level) ([]*TreeNode, map[string]*TreeNode) {
	nodes := make(map[string]*TreeNode, len(units))
	owner := make(map[string]int, len(units))
	for i := range units {
		u := units[i]
		u.Code = strings.TrimSpace(u.Code)
		nodes[u.Code] = &TreeNode{Unit: u, Children: []*TreeNode{}}
		owner[u.Code] = i
	}
	forest := []*TreeNode{}
	for i := range units {
		code := strings.TrimSpace(units[i].Code)
		if owner[code] != i {
			continue
		}
		n := nodes[code]
		if p, ok := n.Parent(); ok && p != code {
			if parent, ok := nodes[p]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		if n.Level == rootLevel {
			forest = append(forest, n)
		}
	}
	return forest, nodes
}

// Walk：深度优先遍历，已访问节点不再进入
// 背景：森林本身不含环，但调用方可能拿到环上节点；visited 防止无限递归
func Walk(forest []*TreeNode, fn func(n *TreeNode, depth int)) {
	seen := make(map[*TreeNode]struct{})
	var visit func(n *TreeNode, depth int)
	visit = func(n *TreeNode, depth int) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range forest {
		visit(r, 1)
	}
}

// Measure：统计节点数与最大深度
func Measure(forest []*TreeNode) (nodes int, depth int) {
	Walk(forest, func(_ *TreeNode, d int) {
		nodes++
		if d > depth {
			depth = d
		}
	})
	return nodes, depth
}
