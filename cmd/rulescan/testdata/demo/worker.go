package demo

// Worker runs jobs.
type Worker struct{}

func (w *Worker) DoSomething() {}
