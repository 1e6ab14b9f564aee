package interfaces

import "github.com/dep2p/go-gpsoffice/pkg/types"

// Dialer 句柄解析器
//
// 把目录记录中的 Endpoint 解析为 Office 句柄，把 ListenerRef 解析为 Listener。
// 解析本身不发起网络调用，不可达在首次调用时才暴露。
type Dialer interface {
	DialOffice(endpoint string) (Office, error)
	DialListener(ref types.ListenerRef) (Listener, error)
}
