package gpu

import "github.com/SebastianRueClausen/rendinator-sub000/driver"

// Transient runs record against a one-shot command buffer: the
// buffer is created, begun, handed to record, ended, committed, and
// waited for, and it is destroyed on every exit path, including
// record failures. It is the scoped form of the record-submit-wait
// idiom one-time transfers and acceleration-structure builds use.
func Transient(record func(cb driver.CmdBuffer) error) error {
	cb, err := GPU().NewCmdBuffer()
	if err != nil {
		return err
	}
	defer cb.Destroy()
	if err := cb.Begin(); err != nil {
		return err
	}
	if err := record(cb); err != nil {
		return err
	}
	if err := cb.End(); err != nil {
		return err
	}
	ch := make(chan error, 1)
	GPU().Commit([]driver.CmdBuffer{cb}, ch)
	return <-ch
}
