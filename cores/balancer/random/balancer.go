package random

import (
	"math/rand/v2"
	"sort"

	"github.com/hulining/consul-balancer/cores/balancer"
	"github.com/hulining/consul-balancer/cores/errors"
)

const Name = "random"

// Balancer 按权重随机 构建时生成前缀和 Pick二分查找
type Balancer struct {
	all    []balancer.Instance
	nodes  []balancer.Instance
	prefix []int
	total  int
}

func New(instances []balancer.Instance) *Balancer {
	b := &Balancer{
		all: make([]balancer.Instance, len(instances)),
	}
	copy(b.all, instances)
	for _, ins := range instances {
		if ins.Weight <= 0 {
			continue
		}
		b.total += ins.Weight
		b.nodes = append(b.nodes, ins)
		b.prefix = append(b.prefix, b.total)
	}
	return b
}

func (b *Balancer) Pick() (balancer.Instance, error) {
	if b.total == 0 {
		return balancer.Instance{}, errors.ErrEmpty
	}
	r := rand.IntN(b.total)
	idx := sort.SearchInts(b.prefix, r+1)
	return b.nodes[idx], nil
}

func (b *Balancer) Instances() []balancer.Instance {
	out := make([]balancer.Instance, len(b.all))
	copy(out, b.all)
	return out
}

type Builder struct{}

func (*Builder) Build(instances []balancer.Instance) balancer.Balancer {
	return New(instances)
}

func (*Builder) Name() string {
	return Name
}

func NewBuilder() balancer.Builder {
	return &Builder{}
}
