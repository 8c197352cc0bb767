package pool

import "sync"

// BufferSize 图片流式输出缓冲区大小（64KB）
const BufferSize = 64 * 1024

// SharedBufferPool 共享缓冲区池
// 存储 *([]byte) 以避免 SA6002 警告
var SharedBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, BufferSize)
		return &buf
	},
}

// Get 取出缓冲区
func Get() *[]byte {
	return SharedBufferPool.Get().(*[]byte)
}

// Put 归还缓冲区
func Put(buf *[]byte) {
	if buf == nil || cap(*buf) < BufferSize {
		return
	}
	*buf = (*buf)[:BufferSize]
	SharedBufferPool.Put(buf)
}
