package utils

// JobPool bounds the number of goroutines working at once. Get blocks
// until a slot is free, Put releases it.
type JobPool struct {
	jobs chan struct{}
}

func NewJobPool(size int) (p *JobPool) {
	p = &JobPool{jobs: make(chan struct{}, size)}
	for range size {
		p.jobs <- struct{}{}
	}
	return p
}

func (p *JobPool) Get() {
	<-p.jobs
}

func (p *JobPool) Put() {
	p.jobs <- struct{}{}
}
