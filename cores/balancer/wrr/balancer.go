package wrr

import (
	"sync"
	"sync/atomic"

	"github.com/hulining/consul-balancer/cores/balancer"
	"github.com/hulining/consul-balancer/cores/errors"
)

const Name = "wrr"

// MaxScheduleLen 预计算调度序列的最大长度 超出后退化为加锁的实时计算
const MaxScheduleLen = 1 << 16

//////////////////////////////////////
// smooth weighted round-robin
// 每次选择: 所有节点current += weight, 选current最大者(相同取靠前), 被选中者current -= total
// 该序列以total为周期, 构建时一次性算出一个周期, Pick只移动原子游标
//////////////////////////////////////

type Balancer struct {
	instances []balancer.Instance
	weights   []int
	total     int

	schedule []int32
	cursor   atomic.Uint64

	mu      sync.Mutex
	current []int
}

func New(instances []balancer.Instance) *Balancer {
	b := &Balancer{
		instances: make([]balancer.Instance, len(instances)),
	}
	copy(b.instances, instances)

	g := 0
	for _, ins := range instances {
		if ins.Weight > 0 {
			g = gcd(g, ins.Weight)
		}
	}
	if g == 0 {
		return b
	}
	b.weights = make([]int, len(instances))
	for i, ins := range instances {
		if ins.Weight > 0 {
			b.weights[i] = ins.Weight / g
			b.total += b.weights[i]
		}
	}
	current := make([]int, len(instances))
	if b.total > MaxScheduleLen {
		b.current = current
		return b
	}
	b.schedule = make([]int32, b.total)
	for k := range b.schedule {
		b.schedule[k] = int32(next(b.weights, current, b.total))
	}
	return b
}

func (b *Balancer) Pick() (balancer.Instance, error) {
	if b.total == 0 {
		return balancer.Instance{}, errors.ErrEmpty
	}
	if b.schedule != nil {
		n := b.cursor.Add(1) - 1
		return b.instances[b.schedule[n%uint64(len(b.schedule))]], nil
	}
	b.mu.Lock()
	i := next(b.weights, b.current, b.total)
	b.mu.Unlock()
	return b.instances[i], nil
}

func (b *Balancer) Instances() []balancer.Instance {
	out := make([]balancer.Instance, len(b.instances))
	copy(out, b.instances)
	return out
}

func next(weights []int, current []int, total int) int {
	best := -1
	for i, w := range weights {
		if w == 0 {
			continue
		}
		current[i] += w
		if best < 0 || current[i] > current[best] {
			best = i
		}
	}
	current[best] -= total
	return best
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
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
