package cache

import (
	"context"
	"fmt"
	"github.com/magic-lib/go-plat-utils/conv"
	"github.com/magic-lib/go-plat-utils/goroutines"
	"reflect"
)

func strToVal[V any](valueStr string) (V, error) {
	var value V
	newValuePtr := conv.NewPtrByType(reflect.TypeOf(value))
	if err := conv.Unmarshal(valueStr, newValuePtr); err != nil {
		var zero V
		return zero, fmt.Errorf("反序列化缓存值失败: %v", err)
	}
	if v, ok := newValuePtr.(V); ok {
		return v, nil
	}
	if ptr, ok := newValuePtr.(*V); ok {
		return *ptr, nil
	}
	return value, nil
}

// 取得默认的ctx
func getContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	ctxPtr, _, _ := goroutines.GetContext()
	if ctxPtr == nil {
		ctxOne := context.Background()
		ctxPtr = &ctxOne
	}
	return *ctxPtr
}
