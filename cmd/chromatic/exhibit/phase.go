package exhibit

// Phase is the finite state of the trial machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConfiguring
	PhaseStaring
	PhasePersisting
	PhaseResults
	PhaseAdminVault
)

// String returns the display name for each phase.
func (p Phase) String() string {
	names := []string{"IDLE", "CONFIGURING", "STARING", "PERSISTENCE", "RESULTS", "ADMIN_VAULT"}
	if int(p) < len(names) {
		return names[p]
	}
	return "UNKNOWN"
}
