/*
selector.go - Effective rate configuration selection and activation

PURPOSE:
  Picks the single configuration in force for a tiered fee type, and
  provides the one explicit state transition that makes a configuration
  active while atomically deactivating its siblings.

SINGLE-ACTIVE INVARIANT:
  Exactly one FeeRateConfig per fee type is expected to be active. The
  selector only OBSERVES the invariant: zero active configs is
  ErrNoActiveConfiguration, more than one is the consistency error
  ErrMultipleActiveConfigurations. ENFORCEMENT belongs to the
  configuration store, which must persist the result of Activate in one
  transaction - never as two independent writes - so aggregation can
  never observe a transient zero-or-two-active state.

QUANTITY CONFIGS:
  QuantityRateConfig entries have no active/inactive gate. All entries
  for distinct item types participate simultaneously; selection is a
  plain item-type lookup.

SEE ALSO:
  - store.go: ConfigStore.ActivateRateConfig persists the transition
  - compose.go: Consumes the selected configuration
*/
package billing

// =============================================================================
// SELECTION
// =============================================================================

// SelectEffectiveConfig returns the single active rate configuration for a
// fee type. Exactly one active config is expected.
func SelectEffectiveConfig(feeTypeID FeeTypeID, configs []FeeRateConfig) (*FeeRateConfig, error) {
	var active *FeeRateConfig
	count := 0
	for i := range configs {
		if configs[i].Status == ConfigActive {
			active = &configs[i]
			count++
		}
	}
	if count != 1 {
		return nil, &ActiveConfigError{FeeTypeID: feeTypeID, Count: count}
	}
	return active, nil
}

// QuantityConfigFor returns the flat rate entry for an item type, or nil.
func QuantityConfigFor(configs []QuantityRateConfig, itemType string) *QuantityRateConfig {
	for i := range configs {
		if configs[i].ItemType == itemType {
			return &configs[i]
		}
	}
	return nil
}

// =============================================================================
// ACTIVATION - The single explicit state transition
// =============================================================================

// Activate returns a new configuration set in which the named config is
// active and every sibling is inactive. It never mutates the input. The
// caller persists the returned set atomically.
func Activate(configs []FeeRateConfig, id RateConfigID) ([]FeeRateConfig, error) {
	found := false
	out := make([]FeeRateConfig, len(configs))
	for i, c := range configs {
		out[i] = c
		if c.ID == id {
			out[i].Status = ConfigActive
			found = true
		} else {
			out[i].Status = ConfigInactive
		}
	}
	if !found {
		return nil, ErrConfigNotFound
	}
	return out, nil
}
