package batch

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"vvtest/pkg/logging"
)

// OutputWatcher watches a batch working directory and marks a Job's output
// file as seen the moment it's created or written, replacing the bare
// stat-poll the original outfileSeen flag otherwise requires.
type OutputWatcher struct {
	watcher *fsnotify.Watcher
	jobs    map[string]*Job // keyed by output file basename
}

// NewOutputWatcher starts watching workDir.
func NewOutputWatcher(workDir string) (*OutputWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(workDir); err != nil {
		w.Close()
		return nil, err
	}
	return &OutputWatcher{watcher: w, jobs: make(map[string]*Job)}, nil
}

// Track registers job so its OutputPath is matched against future events.
func (o *OutputWatcher) Track(job *Job) {
	o.jobs[filepath.Base(job.OutputPath)] = job
}

// Untrack stops matching job's output path (called once it's transitioned
// out of JobSubmitted).
func (o *OutputWatcher) Untrack(job *Job) {
	delete(o.jobs, filepath.Base(job.OutputPath))
}

// Run drains filesystem events until the watcher is closed, marking the
// matching job's output as seen on any create/write event.
func (o *OutputWatcher) Run() {
	for {
		select {
		case event, ok := <-o.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if job, ok := o.jobs[filepath.Base(event.Name)]; ok {
				job.SetOutfileSeen()
			}
		case err, ok := <-o.watcher.Errors:
			if !ok {
				return
			}
			logging.ErrorOnce("BatchOutputWatcher", err, "fsnotify error")
		}
	}
}

// Close stops the watcher.
func (o *OutputWatcher) Close() error {
	return o.watcher.Close()
}
