/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
优雅关闭与系统信号监听。

# 核心类型

  - Manager：封装 net/http.Server、net.Listener 与异步错误通道，
    提供 Start/Shutdown/Wait 等生命周期方法。同一进程中 API 服务器
    与 metrics 服务器各持有一个 Manager，通过 Config.Name 区分日志。
  - Config：监听地址、读写超时、空闲超时、最大请求头大小与优雅关闭超时。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务，监听 ":0" 时
    可通过 ListenAddr 取得实际端口。
  - 优雅关闭：Shutdown 在配置的超时内完成请求排空与连接释放，可重复调用。
  - 等待退出：Wait 在 ctx 结束或服务异常时返回，信号由调用方转换为 ctx 取消。
*/
package server
