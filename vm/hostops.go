// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package vm

import (
	"github.com/GhostKellz/rvm/gas"
	"github.com/GhostKellz/rvm/rvm"
)

// The host opcodes exchange variable-length data through memory: operands
// popped from the stack address memory regions holding identifiers, names
// and payloads, results larger than a word are written back to memory, and
// a status or length word is pushed.

func (c *Core) stepHost(op OpCode) {
	switch op {
	case GHOST_ID_VERIFY:
		c.opGhostIdVerify()
	case GHOST_ID_RESOLVE:
		c.opGhostIdResolve()
	case GHOST_ID_CREATE:
		c.opGhostIdCreate()
	case TOKEN_BALANCE:
		c.opTokenBalance()
	case TOKEN_TRANSFER:
		c.opTokenTransfer()
	case TOKEN_MINT:
		c.opTokenMint()
	case TOKEN_BURN:
		c.opTokenBurn()
	case CNS_RESOLVE:
		c.opCnsResolve()
	case CNS_REGISTER:
		c.opCnsRegister()
	case CNS_UPDATE:
		c.opCnsUpdate()
	case CNS_OWNER:
		c.opCnsOwner()
	case L2_SUBMIT:
		c.opL2Submit()
	case L2_BATCH_VERIFY:
		c.opL2BatchVerify()
	case L2_STATE_SYNC:
		c.opL2StateSync()
	case BRIDGE_SEND:
		c.opBridgeSend()
	case BRIDGE_RECEIVE:
		c.opBridgeReceive()
	case AGENT_CALL:
		c.opAgentCall()
	case AGENT_DEPLOY:
		c.opAgentDeploy()
	case AGENT_QUERY:
		c.opAgentQuery()
	}
}

// readRegion pops an offset and length pair and reads the addressed memory
// region. Reading does not expand the memory.
func (c *Core) readRegion() ([]byte, bool) {
	offset := c.stack.pop()
	size := c.stack.pop()
	data, err := c.memory.read(offset, size)
	if err != nil {
		c.fail(err)
		return nil, false
	}
	return data, true
}

// writeResult writes data to the given memory offset, expanding and charging
// as needed.
func (c *Core) writeResult(offset uint64, data []byte) bool {
	if err := c.memory.set(offset, data, c.meter); err != nil {
		c.fail(err)
		return false
	}
	return true
}

func (c *Core) requireIdentity() (IdentityService, bool) {
	if c.services.Identity == nil {
		c.fail(rvm.InternalError("identity service not available"))
		return nil, false
	}
	return c.services.Identity, true
}

func (c *Core) requireNames() (NameService, bool) {
	if c.services.Names == nil {
		c.fail(rvm.InternalError("name service not available"))
		return nil, false
	}
	return c.services.Names, true
}

func (c *Core) requireTokens() (TokenService, bool) {
	if c.services.Tokens == nil {
		c.fail(rvm.InternalError("token service not available"))
		return nil, false
	}
	return c.services.Tokens, true
}

func (c *Core) requireL2() (Layer2Service, bool) {
	if c.services.L2 == nil {
		c.fail(rvm.InternalError("layer-2 service not available"))
		return nil, false
	}
	return c.services.L2, true
}

func (c *Core) requireBridge() (BridgeService, bool) {
	if c.services.Bridge == nil {
		c.fail(rvm.InternalError("bridge service not available"))
		return nil, false
	}
	return c.services.Bridge, true
}

func (c *Core) requireAgents() (AgentService, bool) {
	if c.services.Agents == nil {
		c.fail(rvm.InternalError("agent service not available"))
		return nil, false
	}
	return c.services.Agents, true
}

func tokenFromWord(word uint64) (gas.TokenType, bool) {
	if word > uint64(gas.Ghost) {
		return 0, false
	}
	return gas.TokenType(word), true
}

// opGhostIdVerify pops id, message and signature regions and pushes 1 if the
// signature verifies against the identity's key, 0 otherwise.
func (c *Core) opGhostIdVerify() {
	identity, ok := c.requireIdentity()
	if !ok {
		return
	}
	id, ok := c.readRegion()
	if !ok {
		return
	}
	message, ok := c.readRegion()
	if !ok {
		return
	}
	signature, ok := c.readRegion()
	if !ok {
		return
	}
	verified, err := identity.Verify(string(id), message, signature)
	if err != nil {
		c.fail(err)
		return
	}
	c.stack.push(boolToWord(verified))
	c.pc++
}

// opGhostIdResolve pops an id region and a destination offset, writes the
// resolved 20-byte address to the destination and pushes 1, or pushes 0 for
// an unknown identity.
func (c *Core) opGhostIdResolve() {
	identity, ok := c.requireIdentity()
	if !ok {
		return
	}
	id, ok := c.readRegion()
	if !ok {
		return
	}
	dest := c.stack.pop()
	addr, found, err := identity.Resolve(string(id))
	if err != nil {
		c.fail(err)
		return
	}
	if !found {
		c.stack.push(0)
		c.pc++
		return
	}
	if !c.writeResult(dest, addr[:]) {
		return
	}
	c.stack.push(1)
	c.pc++
}

// opGhostIdCreate pops a public-key region and a destination offset, derives
// a new identity, writes its 32-character id to the destination and pushes 1.
func (c *Core) opGhostIdCreate() {
	identity, ok := c.requireIdentity()
	if !ok {
		return
	}
	publicKey, ok := c.readRegion()
	if !ok {
		return
	}
	dest := c.stack.pop()
	id, err := identity.Create(publicKey, nil, nil)
	if err != nil {
		c.fail(err)
		return
	}
	if !c.writeResult(dest, []byte(id)) {
		return
	}
	c.stack.push(1)
	c.pc++
}

// opTokenBalance pops a token id and an address word and pushes the balance.
func (c *Core) opTokenBalance() {
	tokens, ok := c.requireTokens()
	if !ok {
		return
	}
	token, ok := tokenFromWord(c.stack.pop())
	if !ok {
		c.fail(rvm.InvalidBytecodeError("invalid token id"))
		return
	}
	addr := addressFromWord(c.stack.pop())
	c.stack.push(tokens.Balance(addr, token))
	c.pc++
}

// opTokenTransfer pops a token id, a recipient address word and an amount,
// and moves the amount from the caller to the recipient.
func (c *Core) opTokenTransfer() {
	tokens, ok := c.requireTokens()
	if !ok {
		return
	}
	token, ok := tokenFromWord(c.stack.pop())
	if !ok {
		c.fail(rvm.InvalidBytecodeError("invalid token id"))
		return
	}
	to := addressFromWord(c.stack.pop())
	amount := c.stack.pop()
	if err := tokens.Transfer(c.env.Caller, to, token, amount); err != nil {
		c.fail(err)
		return
	}
	c.stack.push(1)
	c.pc++
}

// opTokenMint pops a token id, a recipient address word and an amount, and
// mints new tokens to the recipient.
func (c *Core) opTokenMint() {
	tokens, ok := c.requireTokens()
	if !ok {
		return
	}
	token, ok := tokenFromWord(c.stack.pop())
	if !ok {
		c.fail(rvm.InvalidBytecodeError("invalid token id"))
		return
	}
	to := addressFromWord(c.stack.pop())
	amount := c.stack.pop()
	if err := tokens.Mint(to, token, amount); err != nil {
		c.fail(err)
		return
	}
	c.stack.push(1)
	c.pc++
}

// opTokenBurn pops a token id and an amount and burns them from the caller.
func (c *Core) opTokenBurn() {
	tokens, ok := c.requireTokens()
	if !ok {
		return
	}
	token, ok := tokenFromWord(c.stack.pop())
	if !ok {
		c.fail(rvm.InvalidBytecodeError("invalid token id"))
		return
	}
	amount := c.stack.pop()
	if err := tokens.Burn(c.env.Caller, token, amount); err != nil {
		c.fail(err)
		return
	}
	c.stack.push(1)
	c.pc++
}

// opCnsResolve pops a name region and a destination offset, writes the
// resolved address and pushes 1, or pushes 0 if the name does not resolve.
func (c *Core) opCnsResolve() {
	names, ok := c.requireNames()
	if !ok {
		return
	}
	name, ok := c.readRegion()
	if !ok {
		return
	}
	dest := c.stack.pop()
	addr, resolved, err := names.Resolve(string(name))
	if err != nil {
		c.fail(err)
		return
	}
	if !resolved {
		c.stack.push(0)
		c.pc++
		return
	}
	if !c.writeResult(dest, addr[:]) {
		return
	}
	c.stack.push(1)
	c.pc++
}

// opCnsRegister pops a name region and a target address word and registers
// the name with the caller as owner.
func (c *Core) opCnsRegister() {
	names, ok := c.requireNames()
	if !ok {
		return
	}
	name, ok := c.readRegion()
	if !ok {
		return
	}
	target := addressFromWord(c.stack.pop())
	if err := names.Register(string(name), c.env.Caller, target, ""); err != nil {
		c.fail(err)
		return
	}
	c.stack.push(1)
	c.pc++
}

// opCnsUpdate pops a name region and a new target address word and updates
// the record, authorized by the caller.
func (c *Core) opCnsUpdate() {
	names, ok := c.requireNames()
	if !ok {
		return
	}
	name, ok := c.readRegion()
	if !ok {
		return
	}
	target := addressFromWord(c.stack.pop())
	if err := names.Update(string(name), c.env.Caller, &target, nil); err != nil {
		c.fail(err)
		return
	}
	c.stack.push(1)
	c.pc++
}

// opCnsOwner pops a name region and a destination offset, writes the owner
// address and pushes 1, or pushes 0 for an unregistered name.
func (c *Core) opCnsOwner() {
	names, ok := c.requireNames()
	if !ok {
		return
	}
	name, ok := c.readRegion()
	if !ok {
		return
	}
	dest := c.stack.pop()
	owner, found := names.Owner(string(name))
	if !found {
		c.stack.push(0)
		c.pc++
		return
	}
	if !c.writeResult(dest, owner[:]) {
		return
	}
	c.stack.push(1)
	c.pc++
}

// opL2Submit pops a payload region and a destination offset, submits the
// payload, writes its 32-byte hash to the destination and pushes 1.
func (c *Core) opL2Submit() {
	l2, ok := c.requireL2()
	if !ok {
		return
	}
	payload, ok := c.readRegion()
	if !ok {
		return
	}
	dest := c.stack.pop()
	hash := l2.Submit(payload)
	if !c.writeResult(dest, hash[:]) {
		return
	}
	c.stack.push(1)
	c.pc++
}

// opL2BatchVerify pops a root offset, a leaf offset, a proof region (a
// sequence of 32-byte siblings) and a leaf index, and pushes the proof
// verdict.
func (c *Core) opL2BatchVerify() {
	l2, ok := c.requireL2()
	if !ok {
		return
	}
	rootOffset := c.stack.pop()
	leafOffset := c.stack.pop()
	proofOffset := c.stack.pop()
	proofCount := c.stack.pop()
	index := c.stack.pop()

	// A proof longer than the tree can be deep is malformed.
	if proofCount > 64 {
		c.fail(rvm.InvalidBytecodeError("merkle proof too long"))
		return
	}

	rootBytes, err := c.memory.read(rootOffset, 32)
	if err != nil {
		c.fail(err)
		return
	}
	leafBytes, err := c.memory.read(leafOffset, 32)
	if err != nil {
		c.fail(err)
		return
	}
	proofBytes, err := c.memory.read(proofOffset, proofCount*32)
	if err != nil {
		c.fail(err)
		return
	}

	var root, leaf rvm.Hash
	copy(root[:], rootBytes)
	copy(leaf[:], leafBytes)
	proof := make([]rvm.Hash, proofCount)
	for i := range proof {
		copy(proof[i][:], proofBytes[i*32:])
	}

	c.stack.push(boolToWord(l2.VerifyBatch(root, leaf, proof, index)))
	c.pc++
}

// opL2StateSync pushes the number of submissions settled by the sync.
func (c *Core) opL2StateSync() {
	l2, ok := c.requireL2()
	if !ok {
		return
	}
	c.stack.push(uint64(l2.StateSync()))
	c.pc++
}

// opBridgeSend pops a destination chain id and a payload region and pushes
// the nonce of the recorded outbound message.
func (c *Core) opBridgeSend() {
	bridge, ok := c.requireBridge()
	if !ok {
		return
	}
	destChain := c.stack.pop()
	payload, ok := c.readRegion()
	if !ok {
		return
	}
	c.stack.push(bridge.Send(destChain, payload))
	c.pc++
}

// opBridgeReceive pops a source chain id, a nonce and a payload region,
// records the inbound message and pushes 1.
func (c *Core) opBridgeReceive() {
	bridge, ok := c.requireBridge()
	if !ok {
		return
	}
	sourceChain := c.stack.pop()
	nonce := c.stack.pop()
	payload, ok := c.readRegion()
	if !ok {
		return
	}
	if err := bridge.Receive(sourceChain, nonce, payload); err != nil {
		c.fail(err)
		return
	}
	c.stack.push(1)
	c.pc++
}

// opAgentCall pops an agent-id region, an input region and a destination
// offset, invokes the agent, writes its output to the destination and pushes
// the output length.
func (c *Core) opAgentCall() {
	agents, ok := c.requireAgents()
	if !ok {
		return
	}
	id, ok := c.readRegion()
	if !ok {
		return
	}
	input, ok := c.readRegion()
	if !ok {
		return
	}
	dest := c.stack.pop()
	output, err := agents.Call(string(id), input)
	if err != nil {
		c.fail(err)
		return
	}
	if len(output) > 0 && !c.writeResult(dest, output) {
		return
	}
	c.stack.push(uint64(len(output)))
	c.pc++
}

// opAgentDeploy pops a name region, a code region and a destination offset,
// registers the agent, writes its 32-character id and pushes 1.
func (c *Core) opAgentDeploy() {
	agents, ok := c.requireAgents()
	if !ok {
		return
	}
	name, ok := c.readRegion()
	if !ok {
		return
	}
	code, ok := c.readRegion()
	if !ok {
		return
	}
	dest := c.stack.pop()
	id, err := agents.Deploy(string(name), code)
	if err != nil {
		c.fail(err)
		return
	}
	if !c.writeResult(dest, []byte(id)) {
		return
	}
	c.stack.push(1)
	c.pc++
}

// opAgentQuery pops an agent-id region and a destination offset, writes the
// agent's state record to the destination and pushes its length.
func (c *Core) opAgentQuery() {
	agents, ok := c.requireAgents()
	if !ok {
		return
	}
	id, ok := c.readRegion()
	if !ok {
		return
	}
	dest := c.stack.pop()
	record, err := agents.Query(string(id))
	if err != nil {
		c.fail(err)
		return
	}
	if len(record) > 0 && !c.writeResult(dest, record) {
		return
	}
	c.stack.push(uint64(len(record)))
	c.pc++
}
