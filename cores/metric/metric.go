package metric

// IMetric 进程级监控组件 Start非阻塞 Reports为nil表示没有文本报告
type IMetric interface {
	Start()
	Reports() chan string
}
