package poseidon254

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/test"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/rs/zerolog"

	gposeidon "github.com/vocdoni/poseidon254/gnark/poseidon254"
	"github.com/vocdoni/poseidon254/internal/params"
)

func mustElement(t *testing.T, s string) fr.Element {
	t.Helper()
	var e fr.Element
	if _, err := e.SetString(s); err != nil {
		t.Fatalf("parse element: %v", err)
	}
	return e
}

func mustState(t *testing.T, a, b, c string) state {
	t.Helper()
	return state{mustElement(t, a), mustElement(t, b), mustElement(t, c)}
}

func assertState(t *testing.T, name string, got, want state) {
	t.Helper()
	for i := range want {
		if !got[i].Equal(&want[i]) {
			t.Fatalf("%s slot %d mismatch\nexpected %s\ngot      %s", name, i, want[i].String(), got[i].String())
		}
	}
}

func TestCircomVectors(t *testing.T) {
	cases := []struct {
		x, y, expected string
	}{
		{
			"4919343374109933223627495853328117416310439472367144134356200729566675210393",
			"5253109015430049131200882288700211126182357120559979176158196848667194692355",
			"4804190683062966564094284552215482492423412176373545691806986132546823080430",
		},
		{
			"1",
			"2",
			"7853200120776062878684798364095072458815029376092732009249414926327459813530",
		},
	}
	for _, tc := range cases {
		out := Hash(mustElement(t, tc.x), mustElement(t, tc.y))
		expected := mustElement(t, tc.expected)
		if !out.Equal(&expected) {
			t.Fatalf("hash(%s, %s) mismatch\nexpected %s\ngot      %s", tc.x, tc.y, expected.String(), out.String())
		}
	}
}

func TestStageVectors(t *testing.T) {
	p := defaultPermutation

	t.Run("sbox", func(t *testing.T) {
		x := mustElement(t, "10498446744258291650735421565632985639701981041287181768865869454200878131887")
		exp5(&x)
		want := mustElement(t, "12482121694093354782765194089691070098368127388830956394165914815968551446065")
		if !x.Equal(&want) {
			t.Fatalf("sbox mismatch: %s", x.String())
		}
	})

	t.Run("ark", func(t *testing.T) {
		s := mustState(t,
			"13113380046921429357968206206413495707844213025058902153087258344566081685705",
			"15502287019891195293542473848301291711293573680196308374326156854444666425933",
			"960782068423008155923835610511860070078873921748828059626034504954890453563",
		)
		p.addRoundConstants(&s, 0)
		assertState(t, "ark", s, mustState(t,
			"19858578037131633956342249035175485304147089324604866555944670074438212720439",
			"15928568697651131885563790657366470529141658358875818949042050993134916565681",
			"4974970831339591754812778277936825500366371746378485279433975965182263031344",
		))
	})

	t.Run("mix full", func(t *testing.T) {
		s := mustState(t,
			"18748214218909041356337553469301793477858404099161101255670448756216508301025",
			"14001090959915885276730193140615367824457344208709298148449921602972961864271",
			"21039621298411050525972067638905940728497671706374440393718856029109245780568",
		)
		p.mixFull(&s)
		assertState(t, "mix full", s, mustState(t,
			"19212249459613001635322677932044571594832098024684187537767379651838537722242",
			"13346432103628585998281534921408530751039791002079061852835106438825147371757",
			"470145441107885699228147589021085756242352387945133942451294769220019691807",
		))
	})

	t.Run("mix boundary", func(t *testing.T) {
		s := mustState(t,
			"11054539610865716959112730216921823956884402188047559139840762443903078964807",
			"889496775026312796519119247885544826173520850299645133418342221246834572377",
			"20327605851775715928805880379802842509685187839623124393912839998555298548830",
		)
		p.mixBoundary(&s)
		assertState(t, "mix boundary", s, mustState(t,
			"10957445925160270044693914644787882019446927193081715019239813790612436710990",
			"15617724767560381146854323530626642274265602408002782166490987198203153486720",
			"8188576910493806248734793780989996031043527802574000617472436041968065581651",
		))
	})

	t.Run("mix partial", func(t *testing.T) {
		s := mustState(t,
			"1073104925714253051670422979696287993089561378609784836524058216953452518800",
			"18698081889797527287892615152858593919908252735314388801102459459095355586529",
			"964734953777785051088731259326514402767379753056823320461487398194316968472",
		)
		p.mixPartial(&s, 0)
		assertState(t, "mix partial", s, mustState(t,
			"4413576681639644708927435504116008819690219979742107806543982128344816486059",
			"18047144526083855362077562050797531820746747110365503012268045400381426067118",
			"14512113857556374279800803178193270419547881978169561761995632044104001997174",
		))
	})

	t.Run("projection", func(t *testing.T) {
		s := mustState(t,
			"14903581272446463225204524721363305270359053220610820269937666541151177015349",
			"17993715061665243415477544347824042376858770491012817421933497650720324679864",
			"15253365088956611786925658848458340812843569370338269931949433692506640669343",
		)
		got := p.project(&s, 0)
		want := mustElement(t, "10776602241119476978803538453188198564682373569005749437912787513019500133942")
		if !got.Equal(&want) {
			t.Fatalf("projection mismatch: %s", got.String())
		}
	})
}

// denseSparseMatrix expands the coefficients of partial round r into the
// full width×width matrix they encode.
func denseSparseMatrix(p *params.Parameters, r int) []fr.Element {
	coeffs := p.S[params.SparseStride*r : params.SparseStride*(r+1)]
	m := make([]fr.Element, width*width)
	for i := 0; i < width; i++ {
		m[i*width] = coeffs[i]
	}
	for j := 1; j < width; j++ {
		m[j] = coeffs[width+j-1]
		m[j*width+j].SetOne()
	}
	return m
}

func TestSparseMixMatchesDense(t *testing.T) {
	p := defaultPermutation
	for r := 0; r < params.PartialRounds; r++ {
		var s state
		for i := range s {
			s[i].MustSetRandom()
		}
		dense := s
		mix(&dense, denseSparseMatrix(p.params, r))
		p.mixPartial(&s, r)
		assertState(t, "partial round", s, dense)
	}
}

func TestDeterministicAndAsymmetric(t *testing.T) {
	var x, y fr.Element
	x.SetUint64(1)
	y.SetUint64(2)

	first := Hash(x, y)
	for range 10 {
		again := Hash(x, y)
		if !again.Equal(&first) {
			t.Fatalf("non deterministic output %s vs %s", again.String(), first.String())
		}
	}
	swapped := Hash(y, x)
	if swapped.Equal(&first) {
		t.Fatalf("hash(1,2) == hash(2,1) = %s", first.String())
	}
}

func TestCapacitySeparation(t *testing.T) {
	var x, y, capacity fr.Element
	x.SetUint64(1)
	y.SetUint64(2)
	base := Hash(x, y)

	capacity.SetUint64(1)
	withOne := HashWithState(capacity, x, y)
	want := mustElement(t, "15265521111443306125770393834298107805008305603868395386351450631655540391531")
	if !withOne.Equal(&want) {
		t.Fatalf("capacity=1 mismatch\nexpected %s\ngot      %s", want.String(), withOne.String())
	}

	for range 8 {
		capacity.MustSetRandom()
		if capacity.IsZero() {
			continue
		}
		out := HashWithState(capacity, x, y)
		if out.Equal(&base) {
			t.Fatalf("capacity %s ignored", capacity.String())
		}
	}
}

func TestPermuteFirstLimbIsHash(t *testing.T) {
	var x, y fr.Element
	x.MustSetRandom()
	y.MustSetRandom()

	s := [3]fr.Element{{}, x, y}
	Permute(&s)
	h := Hash(x, y)
	if !s[0].Equal(&h) {
		t.Fatalf("permute limb 0 %s != hash %s", s[0].String(), h.String())
	}
}

func TestMatchesIden3(t *testing.T) {
	for range 16 {
		var x, y, capacity fr.Element
		x.MustSetRandom()
		y.MustSetRandom()
		capacity.MustSetRandom()
		bx, by := x.BigInt(new(big.Int)), y.BigInt(new(big.Int))

		ref, err := poseidon.Hash([]*big.Int{bx, by})
		if err != nil {
			t.Fatal(err)
		}
		got, err := HashBigInt(bx, by)
		if err != nil {
			t.Fatal(err)
		}
		if got.Cmp(ref) != 0 {
			t.Fatalf("iden3 mismatch\nexpected %s\ngot      %s", ref.String(), got.String())
		}

		refState, err := poseidon.HashWithState([]*big.Int{bx, by}, capacity.BigInt(new(big.Int)))
		if err != nil {
			t.Fatal(err)
		}
		withState := HashWithState(capacity, x, y)
		if withState.BigInt(new(big.Int)).Cmp(refState) != 0 {
			t.Fatalf("iden3 state mismatch\nexpected %s\ngot      %s", refState.String(), withState.String())
		}
	}
}

func TestHashBigIntRejectsOutOfField(t *testing.T) {
	one := big.NewInt(1)
	cases := []struct {
		name string
		x, y *big.Int
	}{
		{"nil", nil, one},
		{"negative", one, big.NewInt(-1)},
		{"modulus", fr.Modulus(), one},
	}
	for _, tc := range cases {
		if _, err := HashBigInt(tc.x, tc.y); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestElementFromBEBytes(t *testing.T) {
	e := ElementFromBEBytes([]byte{0x01, 0x00})
	if e.String() != "256" {
		t.Fatalf("expected 256, got %s", e.String())
	}

	overflow := new(big.Int).Add(fr.Modulus(), big.NewInt(5)).Bytes()
	e = ElementFromBEBytes(overflow)
	if e.String() != "5" {
		t.Fatalf("expected reduction to 5, got %s", e.String())
	}
}

func TestHashPairs(t *testing.T) {
	pairs := make([][2]fr.Element, 3*pairsPerTask+7)
	for i := range pairs {
		pairs[i][0].SetUint64(uint64(i))
		pairs[i][1].SetUint64(uint64(2*i + 1))
	}
	out, err := HashPairs(context.Background(), pairs)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(pairs) {
		t.Fatalf("expected %d outputs, got %d", len(pairs), len(out))
	}
	for i := range pairs {
		want := Hash(pairs[i][0], pairs[i][1])
		if !out[i].Equal(&want) {
			t.Fatalf("pair %d mismatch", i)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := HashPairs(ctx, pairs); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// Circuit that hashes two limbs and checks against an expected native result.
type poseidonCircuit struct {
	X, Y     frontend.Variable
	Expected frontend.Variable `gnark:",public"`
}

func (c *poseidonCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(gposeidon.Hash(api, c.X, c.Y), c.Expected)
	return nil
}

type poseidonStateCircuit struct {
	Capacity, X, Y frontend.Variable
	Expected       frontend.Variable `gnark:",public"`
}

func (c *poseidonStateCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(gposeidon.HashWithState(api, c.Capacity, c.X, c.Y), c.Expected)
	return nil
}

func TestCircuitMatchesNative(t *testing.T) {
	assert := test.NewAssert(t)

	x := mustElement(t, "4919343374109933223627495853328117416310439472367144134356200729566675210393")
	y := mustElement(t, "5253109015430049131200882288700211126182357120559979176158196848667194692355")
	native := Hash(x, y)

	witness := poseidonCircuit{X: x, Y: y, Expected: native}
	assert.ProverSucceeded(
		&poseidonCircuit{},
		&witness,
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)

	wrong := poseidonCircuit{X: y, Y: x, Expected: native}
	assert.Error(test.IsSolved(&poseidonCircuit{}, &wrong, ecc.BN254.ScalarField()))
}

func TestCircuitWithStateMatchesNative(t *testing.T) {
	assert := test.NewAssert(t)

	var capacity, x, y fr.Element
	capacity.SetUint64(1)
	x.SetUint64(1)
	y.SetUint64(2)
	witness := poseidonStateCircuit{
		Capacity: capacity,
		X:        x,
		Y:        y,
		Expected: HashWithState(capacity, x, y),
	}
	assert.NoError(test.IsSolved(&poseidonStateCircuit{}, &witness, ecc.BN254.ScalarField()))
}

func TestCircuitSolveAndCount(t *testing.T) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &poseidonCircuit{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	t.Logf("t=3 constraints: %d", ccs.GetNbConstraints())

	var x, y fr.Element
	x.SetUint64(1)
	y.SetUint64(2)
	w, err := frontend.NewWitness(&poseidonCircuit{X: x, Y: y, Expected: Hash(x, y)}, ecc.BN254.ScalarField())
	if err != nil {
		t.Fatalf("witness: %v", err)
	}
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.WarnLevel)
	if _, err := ccs.Solve(w, solver.WithLogger(zlog)); err != nil {
		t.Fatalf("solve: %v", err)
	}
}
