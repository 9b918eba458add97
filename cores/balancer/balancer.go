package balancer

import (
	"net"
	"strconv"
)

// Instance 一个健康的后端节点 每次轮询都会重新生成 不会原地修改
type Instance struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
	Weight  int    `json:"weight"`
}

// String host:port 形式 ipv6地址带方括号
func (ins Instance) String() string {
	return net.JoinHostPort(ins.Address, strconv.Itoa(ins.Port))
}

// Balancer 由某一次轮询结果构建的不可变快照
// Pick 不允许阻塞 也不允许做任何I/O
type Balancer interface {
	Pick() (Instance, error)
	Instances() []Instance
}

type Builder interface {
	Build([]Instance) Balancer
	Name() string
}

// TotalWeight 权重之和 负权重按0处理
func TotalWeight(instances []Instance) int {
	total := 0
	for _, ins := range instances {
		if ins.Weight > 0 {
			total += ins.Weight
		}
	}
	return total
}
