package remote

import (
	"net"

	"github.com/dep2p/go-gpsoffice/internal/core/rpc"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// Dialer 把地址解析为远程桩
//
// 解析不发起网络调用，不可达在首次调用时以 rpc.ErrUnreachable 暴露。
type Dialer struct {
	client *rpc.Client
}

var _ interfaces.Dialer = (*Dialer)(nil)

// NewDialer 创建解析器
func NewDialer(client *rpc.Client) *Dialer {
	return &Dialer{client: client}
}

// DialOffice 实现 interfaces.Dialer
func (d *Dialer) DialOffice(endpoint string) (interfaces.Office, error) {
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	return NewOfficeStub(d.client, endpoint), nil
}

// DialListener 实现 interfaces.Dialer
func (d *Dialer) DialListener(ref types.ListenerRef) (interfaces.Listener, error) {
	if ref.Endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	return NewListenerStub(d.client, ref), nil
}

// Directory 返回指向 addr 的目录桩
func (d *Dialer) Directory(addr string) *DirectoryStub {
	return NewDirectoryStub(d.client, addr)
}

// AdvertiseAddr 计算对外公布的地址
//
// override 非空时直接使用；否则使用监听地址，未指定的主机替换为 127.0.0.1。
func AdvertiseAddr(listen net.Addr, override string) string {
	if override != "" {
		return override
	}
	if listen == nil {
		return ""
	}
	host, port, err := net.SplitHostPort(listen.String())
	if err != nil {
		return listen.String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
