package worker_test

import (
	"fmt"

	worker "github.com/joeycumines/go-worker"
)

func Example() {
	w, err := worker.Create(nil, nil, nil)
	if err != nil {
		panic(err)
	}

	done := make(chan struct{})
	if err := w.PushLoad(func(data any) {
		fmt.Println(data)
		close(done)
	}, "hello from the worker goroutine"); err != nil {
		panic(err)
	}
	<-done

	if err := w.DestroySync(); err != nil {
		panic(err)
	}

	// Output: hello from the worker goroutine
}
