package export

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAtomicFloat64Add(t *testing.T) {
	Convey("When AtomicFloat64.Add is called", t, func() {
		Convey("When a single goroutine adds and subtracts", func() {
			af := NewAtomicFloat64(0)
			af.Add(5)
			af.Add(-2)
			So(af.Load(), ShouldEqual, float64(3))
		})

		Convey("When many writers add concurrently", func() {
			af := NewAtomicFloat64(0)
			numOps := 3000
			numWriters := 50

			wg := sync.WaitGroup{}
			wg.Add(numWriters)
			adder := func() {
				for i := 0; i < numOps; i++ {
					af.Add(1.0)
				}
				wg.Done()
			}
			for i := 0; i < numWriters; i++ {
				go adder()
			}
			wg.Wait()

			So(af.Load(), ShouldEqual, float64(numOps*numWriters))
		})

		Convey("When writers add and subtract concurrently", func() {
			af := NewAtomicFloat64(0)
			numOps := 3000
			numWriters := 50

			wg := sync.WaitGroup{}
			wg.Add(numWriters * 2)
			for i := 0; i < numWriters; i++ {
				go func() {
					for j := 0; j < numOps; j++ {
						af.Add(1.0)
					}
					wg.Done()
				}()
				go func() {
					for j := 0; j < numOps; j++ {
						af.Add(-1.0)
					}
					wg.Done()
				}()
			}
			wg.Wait()

			So(af.Load(), ShouldEqual, float64(0))
		})
	})
}
