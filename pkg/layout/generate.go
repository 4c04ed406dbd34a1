package layout

import (
	stderrors "errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/chemlayout/pkg/errors"
	"github.com/matzehuels/chemlayout/pkg/geom"
	"github.com/matzehuels/chemlayout/pkg/mol"
	"github.com/matzehuels/chemlayout/pkg/spatial"
)

// Generate computes 2D coordinates for every atom of m and writes them into
// the molecule.
//
// With Force off and every atom already placed, Generate returns at once with
// Report.Skipped set. Otherwise every coordinate is regenerated. The molecule
// is only written when the whole layout succeeds.
//
// Contract violations (dangling or duplicate bonds, self-loops, a
// disconnected molecule not marked MultiFragment, a ring larger than
// MaxRingSize, an invalid bond length) are returned as *errors.Error values.
// Quality problems are recorded in the report.
func Generate(m *mol.Molecule, opts Options) (*Report, error) {
	start := time.Now()
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "molecule is nil")
	}
	if err := errors.ValidateBondLength(opts.BondLength, DeriveBondLength); err != nil {
		return nil, err
	}
	if err := validate(m); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	L := bondLength(m, opts.BondLength)
	logger := opts.Logger.With("molecule", m.Name)

	report := &Report{BondLength: L, Atoms: m.NumAtoms(), Bonds: m.NumBonds()}
	if !opts.Force && m.AllPlaced() {
		report.Skipped = true
		report.Fragments = len(m.Fragments())
		report.Bond = bondStats(m.Coords(), m, L)
		logger.Debug("coordinates present, skipping layout")
		return report, nil
	}

	frags := m.Fragments()
	report.Fragments = len(frags)
	report.Converged = true
	final := make([]r2.Vec, m.NumAtoms())
	cursor := 0.0
	for fi, atoms := range frags {
		sub, err := fragment(m, atoms, len(frags))
		if err != nil {
			return nil, err
		}
		s := newState(sub, L, opts)
		s.log = logger.With("fragment", fi)
		if err := s.run(opts); err != nil {
			if len(frags) > 1 {
				return nil, errors.Wrap(errors.GetCode(err), err, "fragment %d (atom %d)", fi, atoms[0])
			}
			return nil, err
		}
		report.merge(s.report)
		report.Converged = report.Converged && s.report.Converged

		if len(frags) > 1 {
			cursor = arrange(s.pos, cursor, L)
		}
		for i, a := range atoms {
			final[a] = s.pos[i]
		}
	}
	for i, p := range final {
		m.SetPos(i, p)
	}
	report.Bond = bondStats(final, m, L)
	report.Durations.Total = time.Since(start)

	if report.DegradedSystems > 0 || report.ResidualCollisions > 0 || report.Bond.Stretched > 0 {
		logger.Warn("layout degraded",
			"degraded_systems", report.DegradedSystems,
			"residual_collisions", report.ResidualCollisions,
			"stretched_bonds", report.Bond.Stretched)
	}
	if report.Iterations > 0 && !report.Converged {
		logger.Warn("refinement did not converge", "iterations", report.Iterations, "max_gradient", report.MaxGradient)
	}
	logger.Debug("layout complete",
		"atoms", report.Atoms,
		"rings", report.Rings,
		"templates", report.TemplateSystems,
		"duration", report.Durations.Total)
	return report, nil
}

// run executes the four phases over one connected fragment.
func (s *state) run(opts Options) error {
	t := time.Now()
	if err := s.placeRings(); err != nil {
		return err
	}
	s.report.Durations.Rings = time.Since(t)

	t = time.Now()
	s.placeChains()
	for i, ok := range s.anchored {
		if !ok {
			return errors.New(errors.ErrCodeUnplacedAtom, "atom %d was not reached by the chain placer", i)
		}
	}
	s.report.Durations.Chains = time.Since(t)

	if opts.MaxCollisionPasses > 0 {
		t = time.Now()
		s.report.CollisionPasses, s.report.ResidualCollisions = s.resolveCollisions(opts.MaxCollisionPasses)
		s.report.Durations.Collisions = time.Since(t)
	}

	if opts.MaxRefineIterations > 0 {
		t = time.Now()
		s.report.Iterations, s.report.MaxGradient = s.refine(opts.MaxRefineIterations)
		s.report.Converged = s.report.MaxGradient < convergenceLimit
		s.report.Durations.Refine = time.Since(t)
	}
	s.log.Debug("fragment laid out",
		"atoms", s.m.NumAtoms(),
		"ring_systems", len(s.systems),
		"passes", s.report.CollisionPasses,
		"iterations", s.report.Iterations)
	return nil
}

func validate(m *mol.Molecule) error {
	err := m.Validate()
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, mol.ErrDisconnected):
		return errors.Wrap(errors.ErrCodeDisconnected, err, "molecule %q", m.Name)
	default:
		return errors.Wrap(errors.ErrCodeInvalidGraph, err, "molecule %q", m.Name)
	}
}

func bondLength(m *mol.Molecule, requested float64) float64 {
	switch requested {
	case 0:
		return DefaultBondLength
	case DeriveBondLength:
		if mean, ok := m.MeanBondLength(); ok {
			return mean
		}
		return DefaultBondLength
	}
	return requested
}

// fragment returns the connected sub-molecule over atoms, renumbered from 0
// in ascending handle order. A molecule with a single fragment is returned
// as is.
func fragment(m *mol.Molecule, atoms []int, count int) (*mol.Molecule, error) {
	if count == 1 {
		return m, nil
	}
	local := make(map[int]int, len(atoms))
	sub := mol.New(m.Name)
	for i, a := range atoms {
		local[a] = i
		sub.AddAtom(m.Atom(a))
	}
	type pending struct {
		bond   int
		stereo mol.Stereo
	}
	var stereo []pending
	for _, b := range m.Bonds() {
		la, ok := local[b.A]
		if !ok {
			continue
		}
		id, err := sub.AddBond(mol.Bond{A: la, B: local[b.B], Order: b.Order})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "extract fragment")
		}
		if b.Stereo != nil {
			stereo = append(stereo, pending{id, mol.Stereo{
				Class: b.Stereo.Class,
				RefA:  local[b.Stereo.RefA],
				RefB:  local[b.Stereo.RefB],
			}})
		}
	}
	for _, p := range stereo {
		if err := sub.SetStereo(p.bond, p.stereo); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "extract fragment")
		}
	}
	return sub, nil
}

// arrange shifts pos so its bounding box starts at x = cursor and is centred
// on y = 0, and returns the cursor for the next fragment.
func arrange(pos []r2.Vec, cursor, L float64) float64 {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range pos {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	shift := r2.Vec{X: cursor - minX, Y: -(minY + maxY) / 2}
	for i := range pos {
		pos[i] = r2.Add(pos[i], shift)
	}
	return maxX + shift.X + fragmentGap*L
}

// bondStats measures pos against the target bond length L. MinNonBonded is
// capped at 2 bond lengths.
func bondStats(pos []r2.Vec, m *mol.Molecule, L float64) BondStats {
	var bs BondStats
	lengths := make([]float64, 0, m.NumBonds())
	for _, b := range m.Bonds() {
		d := geom.Dist(pos[b.A], pos[b.B])
		if !withinTolerance(d, L) {
			bs.Stretched++
		}
		lengths = append(lengths, d/L)
	}
	if len(lengths) > 0 {
		bs.Min = floats.Min(lengths)
		bs.Max = floats.Max(lengths)
		bs.Mean = stat.Mean(lengths, nil)
		if len(lengths) > 1 {
			bs.StdDev = stat.PopStdDev(lengths, nil)
		}
	}
	bs.MinNonBonded = 2
	for _, p := range spatial.New(pos).Pairs(2 * L) {
		if _, ok := m.BondBetween(p.I, p.J); ok {
			continue
		}
		bs.MinNonBonded = min(bs.MinNonBonded, geom.Dist(pos[p.I], pos[p.J])/L)
	}
	return bs
}
